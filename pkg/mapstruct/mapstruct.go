package mapstruct

import (
	"github.com/go-viper/mapstructure/v2"
)

// Decode maps input (typically a decoded config map) onto output using the
// json tag names, parsing "30s"-style strings into time.Duration.
func Decode(input any, output any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           output,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}
