package phi

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Service applies field encryption when a key is configured and passes values
// through unchanged otherwise.
type Service struct {
	encryptor FieldEncryptor
}

// NewService returns a pass-through service for an empty key.
func NewService(key []byte, logger zerolog.Logger) (*Service, error) {
	if len(key) == 0 {
		logger.Warn().Msg("PHI encryption disabled: PHI_ENCRYPTION_KEY is not set")
		return &Service{}, nil
	}

	enc, err := NewAESEncryptor(key)
	if err != nil {
		return nil, fmt.Errorf("create PHI encryptor: %w", err)
	}

	logger.Info().Msg("PHI field-level encryption enabled")
	return &Service{encryptor: enc}, nil
}

func (s *Service) IsEnabled() bool {
	return s != nil && s.encryptor != nil
}

// EncryptField leaves nil and empty values untouched.
func (s *Service) EncryptField(value *string) (*string, error) {
	if !s.IsEnabled() || value == nil || *value == "" {
		return value, nil
	}
	out, err := s.encryptor.Encrypt(*value)
	if err != nil {
		return nil, fmt.Errorf("encrypting PHI field: %w", err)
	}
	return &out, nil
}

func (s *Service) DecryptField(value *string) (*string, error) {
	if !s.IsEnabled() || value == nil || *value == "" {
		return value, nil
	}
	out, err := s.encryptor.Decrypt(*value)
	if err != nil {
		return nil, fmt.Errorf("decrypting PHI field: %w", err)
	}
	return &out, nil
}
