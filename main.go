package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"jenkins-builder/config"
	"jenkins-builder/exitcode"
	"jenkins-builder/jenkins"
	"jenkins-builder/logging"
	"jenkins-builder/prompt"
)

const version = "0.1.0"

// newPrompter is replaced in tests.
var newPrompter = func() prompt.Prompter { return prompt.Terminal{} }

func init() {
	cli.VersionFlag = cli.BoolFlag{Name: "version, V", Usage: "print the version"}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args, os.LookupEnv, os.Stdout, os.Stderr)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps err to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return exitcode.OK
	}
	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}

// run parses args, loads the credentials and triggers one build per project
// listed in $PROJECTS. It is isolated from the process so it can be tested.
func run(ctx context.Context, args []string, lookupEnv func(key string) (string, bool), stdout, stderr io.Writer) error {
	app := newApp(stdout, stderr)
	app.Action = func(c *cli.Context) error {
		if c.Bool("help") {
			return cli.ShowAppHelp(c)
		}
		if c.Bool("usage") {
			fmt.Fprintln(stdout, usageLine)
			return nil
		}
		arguments, err := parseArguments(c, stderr)
		if err != nil {
			return err
		}
		return build(ctx, c, arguments, lookupEnv, stdout, stderr)
	}
	return app.Run(args)
}

const usageLine = "Usage: jenkins-builder [-c FILE] [-h HOST] [--credential-file=FILE] [--jenkins-host=HOST] [--ignore-status] [--interactive] [--verbose] [--help] [--usage] [--version]"

// Set up information about the tool.
func newApp(stdout, stderr io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "jenkins-builder"
	app.Usage = "Trigger Jenkins builds for every project listed in $PROJECTS"
	app.UsageText = "PROJECTS=job1:job2 jenkins-builder -c FILE -h HOST"
	app.Version = version
	app.Writer = stdout
	app.ErrWriter = stderr
	// -h belongs to --jenkins-host, and the built-in help command would
	// accept a positional argument.
	app.HideHelp = true
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:      "credential-file, c",
			Usage:     "Read user credentials from this JSON `FILE`",
			TakesFile: true,
		},
		cli.StringFlag{
			Name:  "jenkins-host, h",
			Usage: "Base URL of Jenkins (`HOST`)",
		},
		cli.BoolFlag{
			Name:  "ignore-status",
			Usage: "Treat any completed request as success, even when Jenkins rejects the build",
		},
		cli.BoolFlag{
			Name:  "interactive, i",
			Usage: "Choose and confirm the projects to build",
		},
		cli.BoolFlag{
			Name:  "verbose",
			Usage: "Log every request to standard error",
		},
		cli.BoolFlag{
			Name:  "help",
			Usage: "show help",
		},
		cli.BoolFlag{
			Name:  "usage",
			Usage: "Print a short usage message",
		},
	}
	app.OnUsageError = func(c *cli.Context, err error, _ bool) error {
		return usageError(c, stderr, err)
	}
	// Exit codes are mapped by main.
	app.ExitErrHandler = func(*cli.Context, error) {}
	return app
}

func usageError(c *cli.Context, stderr io.Writer, err error) error {
	fmt.Fprintf(stderr, "%s\n\n", err)
	cli.HelpPrinter(stderr, cli.AppHelpTemplate, c.App)
	return exitcode.New(exitcode.Usage, err)
}

// parseArguments validates the command line before any file or network
// access happens.
func parseArguments(c *cli.Context, stderr io.Writer) (config.Arguments, error) {
	if c.NArg() > 0 {
		return config.Arguments{}, usageError(c, stderr, fmt.Errorf("unexpected argument %q", c.Args().First()))
	}
	arguments := config.Arguments{
		CredentialsPath: c.String("credential-file"),
		JenkinsHost:     c.String("jenkins-host"),
	}
	if arguments.CredentialsPath == "" {
		return config.Arguments{}, usageError(c, stderr, errors.New("a credentials file is required"))
	}
	if arguments.JenkinsHost == "" {
		return config.Arguments{}, usageError(c, stderr, errors.New("a Jenkins host URL is required"))
	}
	return arguments, nil
}

func build(ctx context.Context, c *cli.Context, arguments config.Arguments, lookupEnv func(key string) (string, bool), stdout, stderr io.Writer) error {
	level := slog.LevelWarn
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(logging.NewTerminalHandler(stderr, level))

	projects, err := config.Projects(lookupEnv)
	if err != nil {
		return err
	}

	credentials, err := config.LoadCredentials(arguments.CredentialsPath)
	if err != nil {
		return err
	}
	logger.Debug("credentials loaded", "path", arguments.CredentialsPath, "user", credentials.User)

	client, err := jenkins.NewClient(arguments.JenkinsHost, credentials,
		jenkins.WithLogger(logger),
		jenkins.IgnoreStatus(c.Bool("ignore-status")))
	if err != nil {
		return err
	}

	if c.Bool("interactive") && len(projects) > 0 {
		prompter := newPrompter()
		projects, err = prompter.SelectProjects("Select projects to build", projects)
		if err != nil {
			return err
		}
		if len(projects) == 0 {
			fmt.Fprintln(stdout, "No projects selected.")
			return nil
		}
		ok, err := prompter.Confirm(fmt.Sprintf("Trigger %d build(s) on %s?", len(projects), arguments.JenkinsHost))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(stdout, "Build abandoned.")
			return nil
		}
	}

	logger.Debug("dispatching builds", "projects", projects)
	return jenkins.BuildAll(ctx, client, projects)
}
