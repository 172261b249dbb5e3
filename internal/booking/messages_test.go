package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"barberbot/internal/model"
)

func TestMessages_EscapeClientName(t *testing.T) {
	service := &model.Service{ID: "svc_1", Name: "Corte", Price: 50, Duration: 45}

	confirm := FormatConfirmation(service, "2026-03-09", "09:00", "09:45", "Ana_Maria *vip*")
	assert.Contains(t, confirm, `👤 *Cliente:* Ana\_Maria \*vip\*`)

	notice := FormatManagerNotice(&model.Appointment{
		ID:          "apt_ab12cd34ef",
		ClientName:  "Ana_Maria",
		ServiceName: "Corte",
		Date:        "2026-03-09",
		Time:        "09:00",
		Price:       50,
	})
	assert.Contains(t, notice, `👤 Ana\_Maria`)
	assert.Contains(t, notice, "confirmar ab12cd34")
}
