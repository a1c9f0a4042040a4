package utils

import (
	"fmt"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/hatchpay/offramp-backend/internal/crashtracker"
	"github.com/hatchpay/offramp-backend/internal/message"
	"github.com/hatchpay/offramp-backend/internal/monitor"
)

func SetConfigOptionMessengerType(co *ConfigOption) error {
	senderType := viper.GetString(co.Name)

	messengerType, err := message.ParseMessengerType(senderType)
	if err != nil {
		return fmt.Errorf("couldn't parse messenger type: %w", err)
	}

	*(co.ConfigKey.(*message.MessengerType)) = messengerType
	return nil
}

func SetConfigOptionMetricType(co *ConfigOption) error {
	metricType := viper.GetString(co.Name)

	metricTypeParsed, err := monitor.ParseMetricType(metricType)
	if err != nil {
		return fmt.Errorf("couldn't parse metric type: %w", err)
	}

	*(co.ConfigKey.(*monitor.MetricType)) = metricTypeParsed
	return nil
}

func SetConfigOptionCrashTrackerType(co *ConfigOption) error {
	ctType := viper.GetString(co.Name)

	ctTypeParsed, err := crashtracker.ParseCrashTrackerType(ctType)
	if err != nil {
		return fmt.Errorf("couldn't parse crash tracker type: %w", err)
	}

	*(co.ConfigKey.(*crashtracker.CrashTrackerType)) = ctTypeParsed
	return nil
}

func SetConfigOptionLogLevel(co *ConfigOption) error {
	// parse string to logLevel object
	logLevelStr := viper.GetString(co.Name)
	logLevel, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		return fmt.Errorf("couldn't parse log level: %w", err)
	}

	// update the configKey
	key, ok := co.ConfigKey.(*logrus.Level)
	if !ok {
		return fmt.Errorf("configKey has an invalid type %T", co.ConfigKey)
	}
	*key = logLevel

	logrus.SetLevel(*key)
	return nil
}

// SetConfigOptionDurationSeconds reads an integer number of seconds into a time.Duration.
func SetConfigOptionDurationSeconds(co *ConfigOption) error {
	seconds := viper.GetInt(co.Name)
	if seconds < 0 {
		return fmt.Errorf("%q cannot be negative", co.Name)
	}

	key, ok := co.ConfigKey.(*time.Duration)
	if !ok {
		return fmt.Errorf("configKey has an invalid type %T, expected *time.Duration", co.ConfigKey)
	}
	*key = time.Duration(seconds) * time.Second
	return nil
}

// SetConfigOptionDurationMilliseconds reads an integer number of milliseconds into a time.Duration.
func SetConfigOptionDurationMilliseconds(co *ConfigOption) error {
	millis := viper.GetInt(co.Name)
	if millis < 0 {
		return fmt.Errorf("%q cannot be negative", co.Name)
	}

	key, ok := co.ConfigKey.(*time.Duration)
	if !ok {
		return fmt.Errorf("configKey has an invalid type %T, expected *time.Duration", co.ConfigKey)
	}
	*key = time.Duration(millis) * time.Millisecond
	return nil
}

func SetConfigOptionURLString(co *ConfigOption) error {
	u := viper.GetString(co.Name)

	if u == "" {
		return fmt.Errorf("%q cannot be empty", co.Name)
	}

	_, err := url.ParseRequestURI(u)
	if err != nil {
		return fmt.Errorf("error parsing %q: %w", co.Name, err)
	}

	key, ok := co.ConfigKey.(*string)
	if !ok {
		return fmt.Errorf("the expected type for this config key is a string, but got a %T instead", co.ConfigKey)
	}
	*key = u

	return nil
}

func SetConfigOptionRetryAttempts(co *ConfigOption) error {
	attempts := viper.GetInt(co.Name)
	if attempts <= 0 {
		return fmt.Errorf("%q must be positive", co.Name)
	}

	key, ok := co.ConfigKey.(*uint)
	if !ok {
		return fmt.Errorf("configKey has an invalid type %T, expected *uint", co.ConfigKey)
	}
	*key = uint(attempts)
	return nil
}
