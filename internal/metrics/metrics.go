// Package metrics содержит счетчики expvar сервера. Они доступны на
// административном HTTP по адресу /debug/vars.
package metrics

import "expvar"

var (
	PlayersConnected = expvar.NewInt("players_connected")
	WorldsLoaded     = expvar.NewInt("worlds_loaded")
	SnapshotsSaved   = expvar.NewInt("snapshots_saved")
	PulsesFired      = expvar.NewInt("pulses_fired")
)
