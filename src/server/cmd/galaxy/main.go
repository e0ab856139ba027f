package main

import (
	"context"
	"os"

	"github.com/spf13/pflag"
	_ "go.uber.org/automaxprocs"

	"github.com/crs4/hadoop-galaxy/src/internal/cmdutil"
	"github.com/crs4/hadoop-galaxy/src/internal/log"
	"github.com/crs4/hadoop-galaxy/src/internal/pctx"
	"github.com/crs4/hadoop-galaxy/src/server/cmd/galaxy/cmd"
)

func main() {
	log.InitLogger(os.Getenv("HADOOP_GALAXY_LOG_JSON") != "")
	cmdutil.Main(pctx.Background("galaxy"), do, &cmd.Env{})
}

func do(ctx context.Context, env *cmd.Env) error {
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	return cmd.GalaxyCmd(ctx, env).ExecuteContext(ctx)
}
