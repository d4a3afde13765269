// Command personachat runs the persona agent as an interactive terminal
// chat. It loads the persona sources and model providers from a YAML
// config, keeps the session history in memory or in Redis, and reads user
// turns from stdin until EOF.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/persona/agent"
	"github.com/effective-security/persona/callbacks"
	"github.com/effective-security/persona/chat"
	"github.com/effective-security/persona/chatmodel"
	"github.com/effective-security/persona/persona"
	"github.com/effective-security/persona/pkg/llmfactory"
	"github.com/effective-security/persona/pkg/notify"
	"github.com/effective-security/persona/store"
	"github.com/effective-security/persona/tools"
	"github.com/effective-security/persona/tools/recorder"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

const agentName = "Persona Agent"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: personachat [flags]\n\nFlags:\n")
		flag.PrintDefaults()
	}

	configPath := flag.String("config", "personachat.yaml", "path to configuration file")
	envFile := flag.String("env", ".env", "path to .env file (ignored if missing)")
	chatID := flag.String("chat-id", "", "resume the chat with this ID (default: new chat)")
	verbose := flag.Bool("verbose", false, "print turn and tool events")
	dumpConfig := flag.Bool("dump-config", false, "print the effective config with secrets masked and exit")
	flag.Parse()

	if err := loadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := run(*configPath, *chatID, *verbose, *dumpConfig); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func run(configPath, chatID string, verbose, dumpConfig bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}

	if dumpConfig {
		dump, err := cfg.Redacted()
		if err != nil {
			return err
		}
		fmt.Print(dump)
		return nil
	}

	svc, err := newService(cfg, verbose)
	if err != nil {
		return err
	}

	chatCtx := chatmodel.NewChatContext(chatID, nil)
	ctx = chatmodel.WithChatContext(ctx, chatCtx)

	fmt.Printf("Chatting with %s. Chat ID: %s\n", cfg.Persona.Name, chatCtx.GetChatID())
	fmt.Println("Type /reset to clear the session, /exit or Ctrl-D to quit.")

	return repl(ctx, svc, os.Stdin, os.Stdout)
}

func newService(cfg *Config, verbose bool) (*chat.Service, error) {
	pctx, err := persona.Load(&cfg.Persona)
	if err != nil {
		return nil, err
	}

	model, err := llmfactory.New(&cfg.LLM).AgentModel(agentName, cfg.Agent.Model)
	if err != nil {
		return nil, err
	}

	sender := notify.New(&cfg.Notify)
	userDetails, err := recorder.NewUserDetails(sender)
	if err != nil {
		return nil, err
	}
	unknownQuestion, err := recorder.NewUnknownQuestion(sender)
	if err != nil {
		return nil, err
	}

	registry, err := tools.NewRegistry(userDetails, unknownQuestion)
	if err != nil {
		return nil, err
	}

	ag := agent.New(model, pctx).
		WithName(agentName).
		WithDescription(fmt.Sprintf("Answers questions as %s.", cfg.Persona.Name)).
		WithRegistry(registry)

	var opts []agent.Option
	if cfg.Agent.MaxRounds > 0 {
		opts = append(opts, agent.WithMaxRounds(cfg.Agent.MaxRounds))
	}
	if cfg.Agent.MaxTokens > 0 {
		opts = append(opts, agent.WithMaxTokens(cfg.Agent.MaxTokens))
	}
	if cfg.Agent.Temperature > 0 {
		opts = append(opts, agent.WithTemperature(cfg.Agent.Temperature))
	}
	if verbose {
		opts = append(opts, agent.WithCallback(callbacks.NewPrinter(os.Stderr, callbacks.ModeVerbose)))
	}

	return chat.NewService(ag, opts...).WithMessageStore(newStore(cfg)), nil
}

func newStore(cfg *Config) store.MessageStore {
	if cfg.Redis.Addr == "" {
		ms := store.NewMemoryStore()
		if cfg.Redis.MaxMessages > 0 {
			ms = ms.WithMaxMessages(cfg.Redis.MaxMessages)
		}
		return ms
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	rs := store.NewRedisStore(client, cfg.Redis.Prefix)
	if cfg.Redis.MaxMessages > 0 {
		rs = rs.WithMaxMessages(cfg.Redis.MaxMessages)
	}
	if cfg.Redis.TTL > 0 {
		rs = rs.WithTTL(cfg.Redis.TTL)
	}
	return rs
}

// repl reads turns line by line until EOF or /exit.
func repl(ctx context.Context, svc *chat.Service, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/reset":
			if err := svc.Reset(ctx); err != nil {
				fmt.Fprintf(out, "failed to reset: %v\n", err)
				continue
			}
			fmt.Fprintln(out, "Session cleared.")
			continue
		}

		answer, err := svc.Chat(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(out, "turn failed: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "%s\n\n", answer)
	}
}
