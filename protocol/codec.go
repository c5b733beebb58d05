package protocol

import (
	"encoding/json"

	"github.com/pkg/errors"
)

func Encode(t string, payload any) ([]byte, error) {
	if t == "" {
		return nil, errors.New("trying to encode envelope with empty type")
	}
	if payload == nil {
		return nil, errors.New("trying to encode nil payload")
	}
	pb, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s payload", t)
	}

	var e = Envelope{t, pb}

	return json.Marshal(e)
}

func DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, errors.Wrap(ErrMalformed, "empty envelope")
	}
	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, errors.Wrap(err, "decode envelope")
	}
	return e, nil
}

// DecodePayload unpacks the envelope body into T.
func DecodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.P) == 0 {
		return out, errors.Wrapf(ErrMalformed, "empty payload for type %q", env.T)
	}
	err := json.Unmarshal(env.P, &out)
	return out, err
}
