package catalog

// DefaultRooms mirrors the clinic's four rooms. Sala 4 is out of service.
func DefaultRooms() []Room {
	return []Room{
		{
			ID:        "sala-1",
			Name:      "Sala 1 - Consulta Individual",
			Capacity:  2,
			Equipment: []string{"Escritorio", "Sillas cómodas", "Aire acondicionado", "Iluminación natural"},
			Available: true,
		},
		{
			ID:        "sala-2",
			Name:      "Sala 2 - Terapia Familiar",
			Capacity:  6,
			Equipment: []string{"Mesa redonda", "Sillas múltiples", "Pizarra", "Aire acondicionado"},
			Available: true,
		},
		{
			ID:        "sala-3",
			Name:      "Sala 3 - Evaluaciones",
			Capacity:  2,
			Equipment: []string{"Escritorio amplio", "Material de evaluación", "Computadora", "Impresora"},
			Available: true,
		},
		{
			ID:        "sala-4",
			Name:      "Sala 4 - Terapia Grupal",
			Capacity:  10,
			Equipment: []string{"Círculo de sillas", "Proyector", "Sistema de audio", "Aire acondicionado"},
			Available: false,
		},
	}
}

// DefaultTimeSlots are the half-hour starts from 08:00 to 18:00 inclusive.
func DefaultTimeSlots() []string {
	return []string{
		"08:00", "08:30", "09:00", "09:30", "10:00", "10:30", "11:00",
		"11:30", "12:00", "12:30", "13:00", "13:30", "14:00", "14:30",
		"15:00", "15:30", "16:00", "16:30", "17:00", "17:30", "18:00",
	}
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(DefaultRooms(), DefaultTimeSlots())
	if err != nil {
		panic(err)
	}
	return c
}
