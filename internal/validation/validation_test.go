package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type booking struct {
	Kind    string `json:"kind" validate:"required,oneof=room call"`
	Room    string `json:"roomId" validate:"required_if=Kind room"`
	Link    string `json:"link" validate:"required_if=Kind call,omitempty,http_url"`
	Date    string `json:"date" validate:"required,ddmmyyyy"`
	Clock   string `json:"time" validate:"required,hhmm,hourrange=8 18"`
	Minutes int    `json:"duration" validate:"min=15,max=180,step=15"`
	Note    string `json:"note" validate:"max=5"`
	Title   string `json:"title" validate:"notblank"`
}

func validBooking() booking {
	return booking{Kind: "room", Room: "sala-1", Date: "10/03/2025", Clock: "09:00", Minutes: 45, Title: "x"}
}

func TestStructAccepts(t *testing.T) {
	require.NoError(t, Struct(validBooking()))

	b := validBooking()
	b.Kind, b.Room, b.Link = "call", "", "https://meet.example.com/abc"
	require.NoError(t, Struct(b))

	b = validBooking()
	b.Clock = "18:45"
	b.Note = strings.Repeat("ñ", 5)
	require.NoError(t, Struct(&b))
}

func TestStructReportsJSONField(t *testing.T) {
	tests := []struct {
		name   string
		edit   func(b *booking)
		field  string
		reason string
	}{
		{"unknown kind", func(b *booking) { b.Kind = "video" }, "kind", "must be one of: room call"},
		{"room required", func(b *booking) { b.Room = "" }, "roomId", "is required"},
		{"link required", func(b *booking) { b.Kind, b.Room = "call", "" }, "link", "is required"},
		{"ftp link", func(b *booking) { b.Link = "ftp://example.com" }, "link", "must be a valid http(s) URL"},
		{"relative link", func(b *booking) { b.Link = "meet/abc" }, "link", "must be a valid http(s) URL"},
		{"iso date", func(b *booking) { b.Date = "2025-03-10" }, "date", "invalid date format (DD/MM/YYYY)"},
		{"impossible date", func(b *booking) { b.Date = "31/02/2025" }, "date", "invalid date format (DD/MM/YYYY)"},
		{"one digit hour", func(b *booking) { b.Clock = "9:00" }, "time", "invalid time format (HH:MM)"},
		{"before opening", func(b *booking) { b.Clock = "07:45" }, "time", "must be between 08:00 and 18:59"},
		{"short", func(b *booking) { b.Minutes = 10 }, "duration", "must be at least 15"},
		{"long", func(b *booking) { b.Minutes = 195 }, "duration", "must be at most 180"},
		{"off step", func(b *booking) { b.Minutes = 50 }, "duration", "must be a multiple of 15"},
		{"long note", func(b *booking) { b.Note = "abcdef" }, "note", "cannot exceed 5 characters"},
		{"blank title", func(b *booking) { b.Title = "  " }, "title", "is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBooking()
			tt.edit(&b)
			err := Struct(b)

			var ve *Error
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, tt.reason, ve.Reason)
		})
	}
}

func TestInvalid(t *testing.T) {
	err := Invalid("time", "appointment cannot start before %s", "08:00")
	assert.Equal(t, "time: appointment cannot start before 08:00", err.Error())
}
