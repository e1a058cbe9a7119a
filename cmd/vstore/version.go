package main

import (
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			if short {
				fmt.Println(version)
				return
			}

			label := color.New(color.FgCyan)
			label.Print("  Version:    ")
			fmt.Println(version)
			label.Print("  Commit:     ")
			fmt.Println(commit)
			label.Print("  Built:      ")
			fmt.Println(date)
			label.Print("  Go version: ")
			fmt.Println(runtime.Version())
			label.Print("  OS/Arch:    ")
			fmt.Printf("%s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only version number")

	return cmd
}
