package common

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// LoadConfig reads the yaml config from defaultPath and merges an optional
// user-specified override file on top of it before unmarshalling.
func LoadConfig(config interface{}, defaultPath string, overridePath string) {
	viper.SetConfigName("config")
	viper.AddConfigPath(defaultPath)
	if err := viper.ReadInConfig(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
	if overridePath != "" {
		viper.SetConfigFile(overridePath)
		if err := viper.MergeInConfig(); err != nil {
			log.Error(err)
			os.Exit(1)
		}
	}
	if err := viper.Unmarshal(config); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func ConfigureLogging() {
	log.SetFormatter(&log.TextFormatter{ForceColors: true, FullTimestamp: true})
	log.SetOutput(os.Stdout)
}

func BindCommandlineArguments() {
	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
