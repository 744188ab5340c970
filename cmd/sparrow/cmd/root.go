package cmd

import (
	"fmt"
	"log"
	"os"

	gconfig "github.com/jackerschott/sparrow/pkg/config"
	"github.com/jackerschott/sparrow/pkg/dlogger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sparrow",
	Short: "Sparrow submits experiment runs to compute hosts",
	Long: `Sparrow stages an experiment payload, freezes its configuration for
reproducibility and dispatches its execution, either directly on this
machine or inside a tmux session on a Slurm cluster reached over ssh.

Remote hosts, the payload layout and the runner invocation are defined
in the sparrow configuration file.
`,
}

var config *gconfig.GlobalConfig

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	log.SetFlags(0)
	addLogLevel(rootCmd)
	cobra.OnInitialize(initConfig)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if os.Getenv("SPARROW_CONFIG") != "" {
		viper.SetConfigFile(os.Getenv("SPARROW_CONFIG"))
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.sparrow")
		viper.SetConfigName("sparrow")
	}

	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		wrapFatalln("could not read the sparrow configuration file", err)
		return
	}

	var err error
	config, err = gconfig.Load(viper.GetViper())
	if err != nil {
		wrapFatalln("populate config struct", err)
		return
	}
}

func mustGetLogger() *zap.Logger {
	logger, err := dlogger.GetLogger(params.root.logLevel)
	if err != nil {
		wrapFatalln("failed to set log level", err)
		return nil
	}
	return logger
}
