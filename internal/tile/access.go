package tile

import "slices"

// AccessList - множество id игроков, имеющих доступ к области замка
type AccessList []int32

// Contains проверяет членство
func (a AccessList) Contains(id int32) bool {
	return slices.Contains(a, id)
}

// Add добавляет игрока. Повторное добавление ничего не меняет.
func (a *AccessList) Add(id int32) bool {
	if a.Contains(id) {
		return false
	}
	*a = append(*a, id)
	return true
}

// Remove убирает игрока; для не-члена - no-op
func (a *AccessList) Remove(id int32) bool {
	i := slices.Index(*a, id)
	if i < 0 {
		return false
	}
	*a = slices.Delete(*a, i, i+1)
	return true
}

// Clone возвращает независимую копию
func (a AccessList) Clone() AccessList {
	if len(a) == 0 {
		return nil
	}
	return slices.Clone(a)
}
