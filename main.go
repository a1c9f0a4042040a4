package main

import (
	"github.com/sirupsen/logrus"

	"github.com/hatchpay/offramp-backend/cmd"
	cmdUtils "github.com/hatchpay/offramp-backend/cmd/utils"
)

// Version is the official version of this application.
const Version = "1.0.0"

// GitCommit is populated at build time by
// go build -ldflags "-X main.GitCommit=$GIT_COMMIT"
var GitCommit string

func main() {
	preConfigureLogger()

	if err := cmdUtils.LoadEnvFile(); err != nil {
		logrus.Warnf("Error loading env file: %v", err)
	}

	rootCmd := cmd.SetupCLI(Version, GitCommit)
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatalf("Error executing root command: %s", err.Error())
	}
}

// preConfigureLogger sets the log level to Trace, so logs work from the
// start. This is eventually overwritten in cmd/root.go.
func preConfigureLogger() {
	logrus.SetLevel(logrus.TraceLevel)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
