package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hootzen/amped/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version",
		GroupID:     gBasic,
		Annotations: noDaemon,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}

func NewResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "reset",
		Short:   "Restart time-to-full estimation",
		GroupID: gBasic,
		Long: `Discard the current charging session and the estimated full capacity.

Estimation starts over on the next reading. Use this after swapping the
battery or charger, or when the estimate looks stuck.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ret, err := apiClient.Reset()
			if err != nil {
				return fmt.Errorf("failed to reset: %v", err)
			}

			logrus.Infof("daemon responded: %s", ret)
			logrus.Info("estimator reset")
			return nil
		},
	}
}
