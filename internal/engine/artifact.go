package engine

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/Veraticus/merchcat/internal/canonical"
	"github.com/Veraticus/merchcat/internal/classifier"
	"github.com/Veraticus/merchcat/internal/features"
	"github.com/Veraticus/merchcat/internal/model"
	"github.com/Veraticus/merchcat/internal/normalize"
)

// ErrCorruptArtifact is returned when an artifact fails header or checksum
// verification or cannot be decoded.
var ErrCorruptArtifact = errors.New("corrupt model artifact")

// FormatVersion is the artifact layout version written by MarshalBinary.
const FormatVersion uint16 = 1

var artifactMagic = [4]byte{'M', 'C', 'A', 'T'}

const headerSize = len(artifactMagic) + 2 + sha256.Size

// Model bundles everything inference needs. It is never mutated after
// Train or UnmarshalModel returns it.
type Model struct {
	Features   *features.Space
	Classifier *classifier.Model
	Index      *canonical.Index
	Normalizer *normalize.Normalizer
	Info       model.ArtifactInfo
}

// payload is the gob-encoded body of an artifact.
type payload struct {
	Info               model.ArtifactInfo
	Aliases            map[string]string
	Word               features.Vocabulary
	Char               features.Vocabulary
	Classifier         classifier.Model
	Canonical          []canonical.Entry
	NearMatchThreshold float64
	Docs               int
}

// MarshalBinary encodes the model as magic, version, SHA-256 of the body,
// then the gob body.
func (m *Model) MarshalBinary() ([]byte, error) {
	if m == nil || m.Features == nil || m.Classifier == nil || m.Index == nil {
		return nil, fmt.Errorf("cannot encode incomplete model")
	}

	body := payload{
		Info:               m.Info,
		Word:               m.Features.Word,
		Char:               m.Features.Char,
		Docs:               m.Features.Docs,
		Classifier:         *m.Classifier,
		Canonical:          m.Index.Entries,
		NearMatchThreshold: m.Index.Threshold,
	}
	if m.Normalizer != nil {
		body.Aliases = m.Normalizer.Aliases()
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("failed to encode model: %w", err)
	}

	sum := sha256.Sum256(buf.Bytes())
	out := make([]byte, 0, headerSize+buf.Len())
	out = append(out, artifactMagic[:]...)
	out = binary.BigEndian.AppendUint16(out, FormatVersion)
	out = append(out, sum[:]...)
	out = append(out, buf.Bytes()...)
	return out, nil
}

// UnmarshalModel verifies and decodes an artifact produced by MarshalBinary.
func UnmarshalModel(data []byte) (*Model, error) {
	sum, body, err := splitArtifact(data)
	if err != nil {
		return nil, err
	}

	var p payload
	if err := gob.NewDecoder(bytes.NewReader(body)).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptArtifact, err)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptArtifact, err)
	}

	info := p.Info
	info.Checksum = hex.EncodeToString(sum)
	info.SizeBytes = int64(len(data))

	clf := p.Classifier
	return &Model{
		Features:   &features.Space{Word: p.Word, Char: p.Char, Docs: p.Docs},
		Classifier: &clf,
		Index:      canonical.FromEntries(p.Canonical, p.NearMatchThreshold),
		Normalizer: normalize.New(p.Aliases),
		Info:       info,
	}, nil
}

// ArtifactChecksum returns the hex body checksum recorded in an artifact header.
func ArtifactChecksum(data []byte) (string, error) {
	sum, _, err := splitArtifact(data)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sum), nil
}

func splitArtifact(data []byte) ([]byte, []byte, error) {
	if len(data) < headerSize {
		return nil, nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorruptArtifact, len(data))
	}
	if !bytes.Equal(data[:len(artifactMagic)], artifactMagic[:]) {
		return nil, nil, fmt.Errorf("%w: bad magic", ErrCorruptArtifact)
	}
	if v := binary.BigEndian.Uint16(data[4:6]); v != FormatVersion {
		return nil, nil, fmt.Errorf("%w: unsupported format version %d", ErrCorruptArtifact, v)
	}

	sum := data[6:headerSize]
	body := data[headerSize:]
	actual := sha256.Sum256(body)
	if !bytes.Equal(sum, actual[:]) {
		return nil, nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptArtifact)
	}
	return sum, body, nil
}

func (p *payload) validate() error {
	k := len(p.Classifier.Labels)
	dim := p.Word.Len() + p.Char.Len()
	switch {
	case k < 2:
		return fmt.Errorf("classifier has %d categories", k)
	case len(p.Classifier.Weights) != k || len(p.Classifier.Bias) != k:
		return fmt.Errorf("classifier shape does not match %d categories", k)
	case p.Classifier.Dim != dim:
		return fmt.Errorf("classifier dimension %d does not match feature space %d", p.Classifier.Dim, dim)
	case len(p.Classifier.Calibrators) != 0 && len(p.Classifier.Calibrators) != k:
		return fmt.Errorf("calibration has %d tables for %d categories", len(p.Classifier.Calibrators), k)
	}
	for c, row := range p.Classifier.Weights {
		if len(row) != dim {
			return fmt.Errorf("weight row %d has length %d, want %d", c, len(row), dim)
		}
	}
	return nil
}
