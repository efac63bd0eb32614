package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/Sabbir9535/BlinkChat/internal/chatclient"
	"github.com/Sabbir9535/BlinkChat/internal/logger"
	"github.com/Sabbir9535/BlinkChat/internal/security"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "blinkchat",
		Usage: "terminal client for a BlinkChat server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "server", Value: "http://localhost:5000", EnvVars: []string{"BLINKCHAT_SERVER"}},
			&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Required: true, EnvVars: []string{"BLINKCHAT_USER"}},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Required: true, EnvVars: []string{"BLINKCHAT_PASSWORD"}},
			&cli.StringFlag{Name: "secret", Usage: "shared message secret", Required: true, EnvVars: []string{"MESSAGE_SECRET"}},
			&cli.BoolFlag{Name: "register", Usage: "create the account first"},
			&cli.StringFlag{Name: "log-level", Value: "warn", EnvVars: []string{"LOG_LEVEL"}},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type printer struct {
	names map[int64]string
}

func (p *printer) name(id int64) string {
	if n, ok := p.names[id]; ok {
		return n
	}
	return "#" + strconv.FormatInt(id, 10)
}

func (p *printer) MessageReceived(m chatclient.Message, inSelected bool) {
	if inSelected {
		fmt.Println(p.line(m))
		return
	}
	fmt.Printf("* new message from %s\n", p.name(m.SenderID))
}

func (p *printer) OnlineChanged(ids []int64) {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, p.name(id))
	}
	fmt.Printf("* online: %s\n", strings.Join(names, ", "))
}

func (p *printer) Error(err error) {
	fmt.Fprintf(os.Stderr, "! %v\n", err)
}

func (p *printer) line(m chatclient.Message) string {
	var body string
	switch {
	case m.Undecryptable:
		body = "[could not decrypt]"
	case m.Plaintext != "":
		body = m.Plaintext
	}
	if m.HasImage() {
		body = strings.TrimSpace(body + " [image " + *m.ImageURL + "]")
	}
	return fmt.Sprintf("%s %s: %s", m.CreatedAt.Local().Format("15:04"), p.name(m.SenderID), body)
}

func run(c *cli.Context) error {
	logger.Init("development", c.String("log-level"))

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	enc, err := security.NewEncryptor([]byte(c.String("secret")), nil)
	if err != nil {
		return err
	}

	api := chatclient.NewAPI(c.String("server"), nil)
	auth := api.Login
	if c.Bool("register") {
		auth = api.Register
	}
	me, err := auth(ctx, c.String("user"), c.String("password"))
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}

	wsURL, err := chatclient.WSURL(c.String("server"))
	if err != nil {
		return err
	}
	channel, err := chatclient.Dial(ctx, wsURL, api.Token())
	if err != nil {
		return err
	}
	defer channel.Close()

	p := &printer{names: map[int64]string{me.User.ID: "me"}}
	session := chatclient.NewSession(me.User.ID, api, channel, enc, p)
	defer session.Close()
	if err := session.Start(ctx); err != nil {
		return err
	}

	byName := make(map[string]int64)
	for _, u := range session.Users() {
		p.names[u.ID] = u.Username
		byName[u.Username] = u.ID
	}
	fmt.Printf("signed in as %s. commands: /users, /open <name>, /close, /quit; anything else is sent\n", me.User.Username)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-channel.Done():
			return errors.New("connection closed by server")
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := handleLine(ctx, session, p, byName, strings.TrimSpace(line)); quit {
				return nil
			}
		}
	}
}

func handleLine(ctx context.Context, s *chatclient.Session, p *printer, byName map[string]int64, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "":
	case "/quit":
		return true
	case "/users":
		unseen := s.Unseen()
		for _, u := range s.Users() {
			fmt.Printf("  %-20s unseen=%d\n", u.Username, unseen[u.ID])
		}
	case "/open":
		id, ok := byName[strings.TrimSpace(arg)]
		if !ok {
			p.Error(fmt.Errorf("unknown user %q", arg))
			return false
		}
		if err := s.Select(ctx, id); err != nil {
			p.Error(err)
			return false
		}
		for _, m := range s.Messages() {
			fmt.Println(p.line(m))
		}
	case "/close":
		s.Deselect()
	default:
		if _, err := s.Send(ctx, line, nil); err != nil {
			log.Debug().Err(err).Msg("send failed")
			p.Error(err)
		}
	}
	return false
}
