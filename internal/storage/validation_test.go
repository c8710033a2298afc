package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/merchcat/internal/model"
)

func TestValidateContext(t *testing.T) {
	tests := []struct {
		ctx     context.Context
		name    string
		wantErr bool
	}{
		{
			name:    "valid context",
			ctx:     context.Background(),
			wantErr: false,
		},
		{
			name:    "nil context",
			ctx:     nil,
			wantErr: true,
		},
		{
			name: "canceled context still valid",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			}(),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateContext(tt.ctx)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateContext() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateString(t *testing.T) {
	tests := []struct {
		name    string
		str     string
		wantErr bool
	}{
		{name: "valid string", str: "test"},
		{name: "empty string", str: "", wantErr: true},
		{name: "whitespace only", str: " \t\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateString(tt.str, "param")
			if (err != nil) != tt.wantErr {
				t.Errorf("validateString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrEmptyString) {
				t.Errorf("validateString() error = %v, want ErrEmptyString", err)
			}
		})
	}
}

func TestValidateExample(t *testing.T) {
	tests := []struct {
		example *model.TrainingExample
		name    string
		wantErr bool
	}{
		{name: "valid", example: &model.TrainingExample{Merchant: "Starbucks", Category: "Dining"}},
		{name: "nil", example: nil, wantErr: true},
		{name: "blank merchant", example: &model.TrainingExample{Merchant: "  ", Category: "Dining"}, wantErr: true},
		{name: "blank category", example: &model.TrainingExample{Merchant: "Starbucks"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateExample(tt.example)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateExample() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateExamples_ReportsIndex(t *testing.T) {
	err := validateExamples([]model.TrainingExample{
		{Merchant: "Starbucks", Category: "Dining"},
		{Merchant: "Walmart"},
	})
	if err == nil {
		t.Fatal("validateExamples() error = nil, want error")
	}
	if got := err.Error(); got != `example at index 1: invalid training example: missing category for "Walmart"` {
		t.Errorf("validateExamples() error = %q", got)
	}
}

func TestValidateArtifact(t *testing.T) {
	valid := model.ArtifactInfo{ID: "id", Checksum: "sum", CreatedAt: time.Now()}
	if err := validateArtifact(&valid, []byte{1}); err != nil {
		t.Errorf("validateArtifact() error = %v, want nil", err)
	}
	if err := validateArtifact(&valid, nil); !errors.Is(err, ErrInvalidArtifact) {
		t.Errorf("validateArtifact() error = %v, want ErrInvalidArtifact", err)
	}
}
