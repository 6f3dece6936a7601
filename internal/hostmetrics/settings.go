package hostmetrics

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Settings is the plugins.hostmetrics configuration subtree.
type Settings struct {
	Enabled               bool          `mapstructure:"enabled"`
	CoreConcurrency       int           `mapstructure:"core_concurrency" validate:"min=1,max=256"`
	ProcessSettleInterval time.Duration `mapstructure:"process_settle_interval" validate:"gte=0,lte=5s"`
	RateLimit             float64       `mapstructure:"rate_limit" validate:"gt=0"`
	RateBurst             int           `mapstructure:"rate_burst" validate:"min=1"`
}

// DefaultSettings returns the settings used for keys that are not set.
func DefaultSettings() Settings {
	return Settings{
		Enabled:         true,
		CoreConcurrency: 1,
		RateLimit:       2,
		RateBurst:       4,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// LoadSettings decodes and validates the plugin subtree. A nil v yields the
// defaults.
func LoadSettings(v *viper.Viper) (Settings, error) {
	s := DefaultSettings()
	if v != nil {
		if err := v.Unmarshal(&s); err != nil {
			return Settings{}, fmt.Errorf("decode hostmetrics settings: %w", err)
		}
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks every field against its bounds.
func (s Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate hostmetrics settings: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "min", "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "max", "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return fmt.Errorf("invalid hostmetrics settings: %s", strings.Join(msgs, "; "))
}
