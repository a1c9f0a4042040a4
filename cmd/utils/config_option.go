package utils

import (
	"fmt"
	"go/types"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every config option's environment variable name,
// so "database-url" becomes HATCHPAY_DATABASE_URL.
const EnvPrefix = "HATCHPAY"

// ConfigOption is a declarative description of a single CLI/env configuration
// knob. Options are registered as cobra flags and bound to viper, so each one
// can be set through a flag, an environment variable, or the flag default.
type ConfigOption struct {
	// Name is the flag name, e.g. "database-url".
	Name string
	// Usage is the help text for the flag.
	Usage string
	// OptType is the primitive type of the option value.
	OptType types.BasicKind
	// FlagDefault is the default value when neither flag nor env var is set.
	FlagDefault interface{}
	// ConfigKey is a pointer to the variable that receives the parsed value.
	ConfigKey interface{}
	// CustomSetValue overrides the default parsing of the option value.
	CustomSetValue func(co *ConfigOption) error
	// Required makes SetValues fail when the option resolves to an empty value.
	Required bool
}

type ConfigOptions []*ConfigOption

// Init registers each option as a flag on cmd and binds it to viper with the
// HATCHPAY_ env prefix.
func (cos ConfigOptions) Init(cmd *cobra.Command) error {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	for _, co := range cos {
		if err := co.init(cmd); err != nil {
			return fmt.Errorf("initializing config option %q: %w", co.Name, err)
		}
	}
	return nil
}

func (co *ConfigOption) init(cmd *cobra.Command) error {
	switch co.OptType {
	case types.String:
		defaultValue, _ := co.FlagDefault.(string)
		cmd.PersistentFlags().String(co.Name, defaultValue, co.Usage)
	case types.Int:
		defaultValue, _ := co.FlagDefault.(int)
		cmd.PersistentFlags().Int(co.Name, defaultValue, co.Usage)
	case types.Bool:
		defaultValue, _ := co.FlagDefault.(bool)
		cmd.PersistentFlags().Bool(co.Name, defaultValue, co.Usage)
	case types.Float64:
		defaultValue, _ := co.FlagDefault.(float64)
		cmd.PersistentFlags().Float64(co.Name, defaultValue, co.Usage)
	default:
		return fmt.Errorf("unsupported option type %v", co.OptType)
	}

	return viper.BindPFlag(co.Name, cmd.PersistentFlags().Lookup(co.Name))
}

// Require panics when a required option resolves to an empty value. It mirrors
// the cobra convention of failing fast before the command's Run executes.
func (cos ConfigOptions) Require() {
	for _, co := range cos {
		if co.Required && co.OptType == types.String && viper.GetString(co.Name) == "" {
			panic(fmt.Sprintf("Missing config option %q (env %s_%s)", co.Name, EnvPrefix, strings.ToUpper(strings.ReplaceAll(co.Name, "-", "_"))))
		}
	}
}

// SetValues resolves every option from viper into its ConfigKey.
func (cos ConfigOptions) SetValues() error {
	for _, co := range cos {
		if err := co.setValue(); err != nil {
			return fmt.Errorf("setting config option %q: %w", co.Name, err)
		}
	}
	return nil
}

func (co *ConfigOption) setValue() error {
	if co.CustomSetValue != nil {
		return co.CustomSetValue(co)
	}

	switch co.OptType {
	case types.String:
		key, ok := co.ConfigKey.(*string)
		if !ok {
			return fmt.Errorf("configKey has an invalid type %T, expected *string", co.ConfigKey)
		}
		*key = viper.GetString(co.Name)
	case types.Int:
		key, ok := co.ConfigKey.(*int)
		if !ok {
			return fmt.Errorf("configKey has an invalid type %T, expected *int", co.ConfigKey)
		}
		*key = viper.GetInt(co.Name)
	case types.Bool:
		key, ok := co.ConfigKey.(*bool)
		if !ok {
			return fmt.Errorf("configKey has an invalid type %T, expected *bool", co.ConfigKey)
		}
		*key = viper.GetBool(co.Name)
	case types.Float64:
		key, ok := co.ConfigKey.(*float64)
		if !ok {
			return fmt.Errorf("configKey has an invalid type %T, expected *float64", co.ConfigKey)
		}
		*key = viper.GetFloat64(co.Name)
	default:
		return fmt.Errorf("unsupported option type %v", co.OptType)
	}

	return nil
}

// IsExplicitlySet reports whether the option was set by a flag or an env var,
// as opposed to resolving to the flag default.
func IsExplicitlySet(co *ConfigOption) bool {
	return viper.InConfig(co.Name) || viper.IsSet(co.Name)
}
