// Package clearchatcli provides the CLI boilerplate shared by the clearchat
// Lambda functions: service descriptors, common flags, structured logging and
// CloudWatch metrics.
package clearchatcli

import (
	"fmt"
	"runtime/debug"

	"github.com/urfave/cli/v2"
)

func App(service Service, action cli.ActionFunc, flags ...cli.Flag) *cli.App {
	return &cli.App{
		Name:                 service.Name,
		Usage:                fmt.Sprintf("%v clearchat service", service.Name),
		Version:              service.Version,
		EnableBashCompletion: true,
		Before:               InitCommonOpts,
		Action:               action,
		Flags:                flags,
	}
}

// InitCommonOpts checks the common options after flag parsing. Console mode
// falls back to a local region so user ids can be minted without AWS config.
func InitCommonOpts(c *cli.Context) error {
	if CommonOpts.Region == "" {
		if !CommonOpts.Console {
			return fmt.Errorf("region must be set, either with --region or AWS_REGION")
		}
		CommonOpts.Region = "local"
	}
	return nil
}

func CommitHash() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				return setting.Value
			}
		}
		return info.Main.Version
	}
	return "unknown"
}
