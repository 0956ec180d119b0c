/*
Package cli holds helpers shared by the flowgate commands.

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
	// ctx is cancelled on SIGINT or SIGTERM

Exit Codes:

	os.Exit(cli.ExitCode(err))

Configuration, rule file and flag errors exit 2; other failures exit 1.
*/
package cli
