package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(appointmentWrites.WithLabelValues("create", "ok"))
	IncAppointmentWrite("create", "ok")
	assert.Equal(t, before+1, testutil.ToFloat64(appointmentWrites.WithLabelValues("create", "ok")))

	before = testutil.ToFloat64(agendaBuilds.WithLabelValues("cache", "hit"))
	IncAgendaBuild("cache", "hit")
	assert.Equal(t, before+1, testutil.ToFloat64(agendaBuilds.WithLabelValues("cache", "hit")))
}

func TestGaugesAreReplaced(t *testing.T) {
	SetOpenAlerts(map[[2]string]int{{"conflict", "high"}: 2, {"warning", "medium"}: 1})
	assert.Equal(t, 2, testutil.CollectAndCount(openAlerts))
	assert.Equal(t, float64(2), testutil.ToFloat64(openAlerts.WithLabelValues("conflict", "high")))

	SetOpenAlerts(map[[2]string]int{{"reminder", "medium"}: 1})
	assert.Equal(t, 1, testutil.CollectAndCount(openAlerts))

	SetRooms(map[string]int{"available": 2, "maintenance": 1})
	assert.Equal(t, float64(1), testutil.ToFloat64(roomStatus.WithLabelValues("maintenance")))
}
