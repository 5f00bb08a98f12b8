package domain

// ValidateMarca checks an already normalized tail number.
func ValidateMarca(marca string) error {
	if marca == "" {
		return NewValidationError("marca", marca, ErrMarcaEmpty)
	}
	return nil
}

// ParseMarca normalizes raw and validates the result.
func ParseMarca(raw string) (string, error) {
	marca := NormalizeMarca(raw)
	if err := ValidateMarca(marca); err != nil {
		return "", err
	}
	return marca, nil
}
