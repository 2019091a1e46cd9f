// Package packet содержит построитель и читатель бинарных пакетов,
// общих для сетевого протокола и сохраняемых снимков мира.
package packet

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrShortBuffer возвращается, когда в пакете не хватает байт для чтения поля
var ErrShortBuffer = errors.New("недостаточно данных в пакете")

// ErrStringTooLong возвращается при попытке записать строку длиннее 65535 байт
var ErrStringTooLong = errors.New("строка слишком длинная для пакета")

// Writer - растущий буфер для сборки пакета (little-endian)
type Writer struct {
	buf []byte
	err error
}

// NewWriter создает буфер с заданной начальной емкостью
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

func (w *Writer) U8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) Bool(v bool) {
	if v {
		w.U8(1)
		return
	}
	w.U8(0)
}

func (w *Writer) U16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) U32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) I32(v int32) {
	w.U32(uint32(v))
}

func (w *Writer) U64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *Writer) I64(v int64) {
	w.U64(uint64(v))
}

func (w *Writer) F32(v float32) {
	w.U32(math.Float32bits(v))
}

// Str пишет строку с uint16-префиксом длины
func (w *Writer) Str(s string) {
	if len(s) > math.MaxUint16 {
		w.err = ErrStringTooLong
		s = s[:math.MaxUint16]
	}
	w.U16(uint16(len(s)))
	w.buf = append(w.buf, s...)
}

// Raw дописывает байты без префикса
func (w *Writer) Raw(b []byte) {
	w.buf = append(w.buf, b...)
}

// Reserve16 резервирует два байта под длину, которая станет известна позже.
// Возвращает смещение для PatchLen16.
func (w *Writer) Reserve16() int {
	off := len(w.buf)
	w.buf = append(w.buf, 0, 0)
	return off
}

// PatchLen16 записывает в зарезервированное место длину данных, записанных после него
func (w *Writer) PatchLen16(off int) {
	n := len(w.buf) - off - 2
	if n > math.MaxUint16 {
		w.err = ErrStringTooLong
		n = math.MaxUint16
	}
	binary.LittleEndian.PutUint16(w.buf[off:off+2], uint16(n))
}

// Len возвращает текущий размер пакета
func (w *Writer) Len() int { return len(w.buf) }

// Err возвращает первую ошибку записи, если она была
func (w *Writer) Err() error { return w.err }

// Bytes возвращает собранный пакет
func (w *Writer) Bytes() []byte { return w.buf }

// Reader читает поля пакета. Первая ошибка "залипает": после нее все чтения
// возвращают нулевые значения, а Err() сообщает причину.
type Reader struct {
	buf []byte
	off int
	err error
}

// NewReader создает читатель поверх байт пакета
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.buf) {
		r.err = ErrShortBuffer
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) Bool() bool {
	return r.U8() != 0
}

func (r *Reader) U16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) I32() int32 {
	return int32(r.U32())
}

func (r *Reader) U64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) I64() int64 {
	return int64(r.U64())
}

func (r *Reader) F32() float32 {
	return math.Float32frombits(r.U32())
}

func (r *Reader) Str() string {
	n := int(r.U16())
	b := r.take(n)
	if b == nil {
		return ""
	}
	return string(b)
}

// Sub отрезает следующие n байт в отдельный читатель
func (r *Reader) Sub(n int) *Reader {
	b := r.take(n)
	if b == nil {
		return &Reader{err: r.err}
	}
	return &Reader{buf: b}
}

// Remaining возвращает количество непрочитанных байт
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// Err возвращает первую ошибку чтения
func (r *Reader) Err() error { return r.err }
