package core

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitValidators(t *testing.T) {
	validate := validator.New()
	translator, _ := ut.New(en.New()).GetTranslator("en")
	InitValidators(validate, translator)

	type seat struct {
		Username string `json:"username" validate:"omitempty,alphanum_"`
		Color    string `json:"color" validate:"omitempty,canvascolor"`
		Initials string `json:"initials" validate:"omitempty,initials"`
	}

	tests := []struct {
		name    string
		seat    seat
		wantErr map[string]string
	}{
		{name: "valid", seat: seat{Username: "ms_kay", Color: "#1a2B3c", Initials: "ÉK"}},
		{name: "color with alpha", seat: seat{Color: "#FF1F1F1F"}},
		{name: "short color", seat: seat{Color: "#fff"}, wantErr: map[string]string{"color": "must be a color in the #RRGGBB or #AARRGGBB format"}},
		{name: "seven digit color", seat: seat{Color: "#ffffff8"}, wantErr: map[string]string{"color": "must be a color in the #RRGGBB or #AARRGGBB format"}},
		{name: "named color", seat: seat{Color: "red"}, wantErr: map[string]string{"color": "must be a color in the #RRGGBB or #AARRGGBB format"}},
		{name: "initials with digits", seat: seat{Initials: "A1"}, wantErr: map[string]string{"initials": "initials may only contain letters"}},
		{name: "initials with dots", seat: seat{Initials: "A.B"}, wantErr: map[string]string{"initials": "initials may only contain letters"}},
		{
			name: "username with dash", seat: seat{Username: "ms-kay"},
			wantErr: map[string]string{"username": "only alphanumeric characters and underscores are allowed"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.seat)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}

			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			got := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				got[fe.Field()] = fe.Translate(translator)
			}
			assert.Equal(t, tt.wantErr, got)
		})
	}
}
