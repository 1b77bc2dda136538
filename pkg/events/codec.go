package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dukex/sagaflow/pkg/models"
	"github.com/go-playground/validator/v10"
)

// ErrDecode indicates a message that could not be turned into a valid record.
var ErrDecode = errors.New("malformed message")

// IsDecodeError checks if an error came from decoding an inbound message.
func IsDecodeError(err error) bool {
	return errors.Is(err, ErrDecode)
}

// Codec reads and writes the JSON wire format and validates inbound records.
type Codec struct {
	validate *validator.Validate
}

func NewCodec() *Codec {
	return &Codec{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// DecodeStatus parses and validates a status report.
func (c *Codec) DecodeStatus(payload []byte) (*ToManager, error) {
	var msg ToManager

	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	if err := c.validate.Struct(&msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	return &msg, nil
}

// DecodeEdit parses and validates a workflow edit.
func (c *Codec) DecodeEdit(payload []byte) (*ToManagerEdits, error) {
	var msg ToManagerEdits

	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	if err := c.ValidateEdit(&msg); err != nil {
		return nil, err
	}

	return &msg, nil
}

// ValidateEdit checks the struct tags of msg and that every node of its graph
// names both a service and a function.
func (c *Codec) ValidateEdit(msg *ToManagerEdits) error {
	if err := c.validate.Struct(msg); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}

	for src, targets := range msg.Workflow {
		if err := c.validate.Struct(src); err != nil {
			return fmt.Errorf("%w: source %q: %w", ErrDecode, src, models.ErrInvalidProcess)
		}

		for _, target := range targets {
			if err := c.validate.Struct(target); err != nil {
				return fmt.Errorf("%w: target %q of %s: %w", ErrDecode, target, src, models.ErrInvalidProcess)
			}
		}
	}

	return nil
}

// Encode serializes an outbound record.
func (c *Codec) Encode(msg any) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}

	return payload, nil
}
