package store

// Seed returns the contacts the server starts with
func Seed() []Contact {
	return []Contact{
		{
			ID:     "3d594650-3436-11e9-bc57-8b80ba54c431",
			Name:   "Arto Hellas",
			Phone:  phone("040-123543"),
			Street: "Tapiolankatu 5 A",
			City:   "Espoo",
		},
		{
			ID:     "3d599470-3436-11e9-bc57-8b80ba54c431",
			Name:   "Matti Luukkainen",
			Phone:  phone("040-432342"),
			Street: "Malminkaari 10 A",
			City:   "Helsinki",
		},
		{
			ID:     "3d599471-3436-11e9-bc57-8b80ba54c431",
			Name:   "Venla Ruuska",
			Street: "Nallemäentie 22 C",
			City:   "Helsinki",
		},
	}
}

func phone(s string) *string { return &s }
