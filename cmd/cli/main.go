package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charithe/calcengine/pkg/calculator"
	"github.com/charithe/calcengine/pkg/expr"
	"github.com/charithe/calcengine/pkg/session"
	"github.com/chzyer/readline"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"gopkg.in/alecthomas/kingpin.v2"
)

const callTimeout = 10 * time.Second

var (
	app = kingpin.New("Calculator CLI", "Calculator engine RPC client")

	addr      = app.Flag("addr", "Server address").Default("localhost:8080").Envar("CALC_ADDR").String()
	insecure  = app.Flag("insecure", "Trust unknown CAs").Bool()
	plaintext = app.Flag("plaintext", "Use unencrypted connection").Bool()
	profile   = app.Flag("profile", "Profile whose history and preferences are used").Default(calculator.DefaultProfile).Envar("CALC_PROFILE").String()
	mode      = app.Flag("mode", "Calculator mode").Default("standard").Enum("standard", "scientific", "programmer")
	radixName = app.Flag("radix", "Programmer radix").Default("dec").Enum("bin", "oct", "dec", "hex")

	keysCmd  = app.Command("keys", "Press keys and print the final display")
	keysArgs = keysCmd.Arg("keys", "Keys, e.g. 1 + 2 =").Required().Strings()

	streamCmd = app.Command("stream", "Stream keys from stdin, one line at a time")

	evalCmd  = app.Command("eval", "Evaluate an expression")
	evalExpr = evalCmd.Arg("expr", "Expression").Required().Strings()

	convertCmd      = app.Command("convert", "Convert a value between units")
	convertCategory = convertCmd.Arg("category", "currency, length, mass, temperature or volume").Required().String()
	convertFrom     = convertCmd.Arg("from", "Source unit").Required().String()
	convertTo       = convertCmd.Arg("to", "Target unit").Required().String()
	convertValue    = convertCmd.Arg("value", "Value").Required().String()

	historyCmd   = app.Command("history", "Show the saved history")
	historyClear = historyCmd.Flag("clear", "Clear the history").Bool()

	replCmd = app.Command("repl", "Interactive calculator")
)

func main() {
	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	logger, err := zap.NewDevelopment()
	if err != nil {
		kingpin.Fatalf("Failed to create logger: %v", err)
	}
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	client, err := createClient()
	if err != nil {
		zap.S().Fatalw("Failed to connect to server", "error", err)
	}
	defer client.Close()

	switch cmd {
	case keysCmd.FullCommand():
		err = doKeys(client)
	case streamCmd.FullCommand():
		err = doStream(client)
	case evalCmd.FullCommand():
		err = doEval(client)
	case convertCmd.FullCommand():
		err = doConvert(client)
	case historyCmd.FullCommand():
		err = doHistory(client)
	case replCmd.FullCommand():
		err = doREPL(client)
	}

	if err != nil {
		zap.S().Errorw("Command failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func createClient() (*calculator.Client, error) {
	var dialOpts []grpc.DialOption
	if !*plaintext {
		tlsConf := &tls.Config{
			InsecureSkipVerify: *insecure,
		}
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(credentials.NewTLS(tlsConf)))
	}

	return calculator.Dial(*addr, dialOpts...)
}

func timeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), callTimeout)
}

func currentMode() expr.Mode {
	m, _ := expr.ParseMode(*mode)
	return m
}

// openSession creates a session in the configured mode and radix.
func openSession(ctx context.Context, client *calculator.Client) (string, session.Snapshot, error) {
	resp, err := client.CreateSession(ctx, *profile, *mode)
	if err != nil {
		return "", session.Snapshot{}, err
	}

	snap := resp.Snapshot
	if currentMode() == expr.ModeProgrammer && *radixName != "dec" {
		if snap, err = client.SetRadix(ctx, resp.SessionID, *radixName); err != nil {
			return "", snap, err
		}
	}
	return resp.SessionID, snap, nil
}

func printSnapshot(w io.Writer, snap session.Snapshot) {
	fmt.Fprintf(w, "%s\n= %s\n", snap.Display, snap.Preview)
}

func doKeys(client *calculator.Client) error {
	ctx, cancel := timeout()
	defer cancel()

	id, _, err := openSession(ctx, client)
	if err != nil {
		return err
	}
	defer client.CloseSession(ctx, id)

	snap, err := client.Press(ctx, id, parseKeys(strings.Join(*keysArgs, " "), currentMode())...)
	if err != nil {
		return err
	}
	printSnapshot(os.Stdout, snap)
	return nil
}

func doStream(client *calculator.Client) error {
	ctx := context.Background()
	id, _, err := openSession(ctx, client)
	if err != nil {
		return err
	}
	defer client.CloseSession(ctx, id)

	zap.S().Info("Enter keys on each line. Press Ctrl+D to end")

	keyChan := make(chan calculator.Key)
	go func() {
		defer close(keyChan)

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			for _, k := range parseKeys(scanner.Text(), currentMode()) {
				keyChan <- k
			}
		}

		if err := scanner.Err(); err != nil {
			zap.S().Warnw("Failed to read stream", "error", err)
		}
	}()

	snap, err := client.PressStream(ctx, id, keyChan)
	if err != nil {
		return err
	}
	printSnapshot(os.Stdout, snap)
	return nil
}

func doEval(client *calculator.Client) error {
	ctx, cancel := timeout()
	defer cancel()

	resp, err := client.Evaluate(ctx, strings.Join(*evalExpr, " "), *mode, *radixName)
	if err != nil {
		return err
	}
	fmt.Println(resp.Formatted)
	return nil
}

func doConvert(client *calculator.Client) error {
	ctx, cancel := timeout()
	defer cancel()

	resp, err := client.Convert(ctx, *convertCategory, *convertFrom, *convertTo, *convertValue)
	if err != nil {
		return err
	}

	if resp.RatesSource != "" {
		fmt.Printf("%s %s (rates: %s)\n", resp.Result, *convertTo, resp.RatesSource)
		return nil
	}
	fmt.Printf("%s %s\n", resp.Result, *convertTo)
	return nil
}

func doHistory(client *calculator.Client) error {
	ctx, cancel := timeout()
	defer cancel()

	id, _, err := openSession(ctx, client)
	if err != nil {
		return err
	}
	defer client.CloseSession(ctx, id)

	if *historyClear {
		return client.ClearHistory(ctx, id)
	}

	entries, err := client.History(ctx, id)
	if err != nil {
		return err
	}
	for i, e := range entries {
		fmt.Printf("%3d  %s = %s\n", i, e.Expression, e.Result)
	}
	return nil
}

func doREPL(client *calculator.Client) error {
	ctx := context.Background()
	id, snap, err := openSession(ctx, client)
	if err != nil {
		return err
	}
	defer client.CloseSession(ctx, id)

	rl, err := readline.New(fmt.Sprintf("%s> ", snap.Mode))
	if err != nil {
		return err
	}
	defer func() { _ = rl.Close() }()

	fmt.Fprintln(rl.Stdout(), "Type keys separated by spaces. Commands: :mode NAME, :radix NAME, :history, :pick N, :clear, :quit")
	m := currentMode()

	for {
		line, err := rl.Readline()
		if err != nil {
			// io.EOF or readline.ErrInterrupt
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		callCtx, cancel := timeout()
		if strings.HasPrefix(line, ":") {
			var quit bool
			quit, err = replCommand(callCtx, client, id, line, &m, rl)
			cancel()
			if quit {
				return nil
			}
			if err != nil {
				fmt.Fprintf(rl.Stderr(), "error: %v\n", err)
			}
			continue
		}

		snap, err = client.Press(callCtx, id, parseKeys(line, m)...)
		cancel()
		if err != nil {
			fmt.Fprintf(rl.Stderr(), "error: %v\n", err)
			continue
		}
		printSnapshot(rl.Stdout(), snap)
	}
}

func replCommand(ctx context.Context, client *calculator.Client, id, line string, m *expr.Mode, rl *readline.Instance) (bool, error) {
	fields := strings.Fields(strings.TrimPrefix(line, ":"))
	if len(fields) == 0 {
		return false, nil
	}

	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch fields[0] {
	case "quit", "q", "exit":
		return true, nil
	case "mode":
		snap, err := client.SetMode(ctx, id, arg)
		if err != nil {
			return false, err
		}
		*m, _ = expr.ParseMode(arg)
		rl.SetPrompt(fmt.Sprintf("%s> ", snap.Mode))
		printSnapshot(rl.Stdout(), snap)
	case "radix":
		snap, err := client.SetRadix(ctx, id, arg)
		if err != nil {
			return false, err
		}
		printSnapshot(rl.Stdout(), snap)
	case "history":
		entries, err := client.History(ctx, id)
		if err != nil {
			return false, err
		}
		for i, e := range entries {
			fmt.Fprintf(rl.Stdout(), "%3d  %s = %s\n", i, e.Expression, e.Result)
		}
	case "pick":
		i, err := strconv.Atoi(arg)
		if err != nil {
			return false, err
		}
		snap, err := client.SelectHistory(ctx, id, i)
		if err != nil {
			return false, err
		}
		printSnapshot(rl.Stdout(), snap)
	case "clear":
		return false, client.ClearHistory(ctx, id)
	default:
		return false, fmt.Errorf("unknown command %q", fields[0])
	}
	return false, nil
}
