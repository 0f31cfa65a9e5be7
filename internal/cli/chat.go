// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat REPL against the worker, without the TUI.
//
// Command: chat
//
// Interactive commands (during chat):
//   /help, /h       Show available commands
//   /status, /s     Show connection status
//   /validate, /v   Validate the loaded document
//   /quit, /q       Exit chat
//   Ctrl+C, Ctrl+D  Exit chat
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/docenty/hunmin/internal/agent"
	"github.com/docenty/hunmin/internal/channel"
	"github.com/docenty/hunmin/internal/config"
	"github.com/docenty/hunmin/internal/document"
	"github.com/docenty/hunmin/internal/ui/styles"
	"github.com/docenty/hunmin/internal/validation"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Blue).
			Bold(true)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(styles.Violet).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	replyStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	warnStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)
)

// replyTimeout bounds how long the REPL waits for a worker reply.
const replyTimeout = 30 * time.Second

// =============================================================================
// INPUT HISTORY
// =============================================================================

// chatInput provides line editing and persistent input history.
type chatInput struct {
	line        *liner.State
	historyFile string
}

func newChatInput() *chatInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.Dir()
	if err != nil {
		dir = os.TempDir()
	}

	c := &chatInput{
		line:        line,
		historyFile: filepath.Join(dir, "chat_history"),
	}
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
	return c
}

func (c *chatInput) read(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

func (c *chatInput) close() {
	if err := config.EnsureDir(); err == nil {
		if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			c.line.WriteHistory(f)
			f.Close()
		}
	}
	c.line.Close()
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChat runs the interactive chat REPL.
func HandleChat(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	buf := document.NewBuffer()
	if args.File != "" {
		data, err := os.ReadFile(args.File)
		if err != nil {
			return fmt.Errorf("open document: %w", err)
		}
		buf.SetContent(string(data))
		buf.SetTitle(filepath.Base(args.File))
	}

	ch := channel.New(channelConfig(cfg), channel.NewWebSocketDialer())
	defer ch.Disconnect()

	if err := ch.Connect(); err != nil {
		return fmt.Errorf("워커에 연결할 수 없습니다 (%s): %w", cfg.Channel.WorkerURL, err)
	}

	a := agent.New(ch, buf)

	if !args.Quiet {
		fmt.Println(welcomeStyle.Render("훈민 AI 채팅"))
		fmt.Println(infoStyle.Render("워커: " + cfg.Channel.WorkerURL))
		if args.File != "" {
			fmt.Println(infoStyle.Render(fmt.Sprintf("문서: %s (%s)", buf.Title, buf.SecurityLevel.Marking())))
		}
		fmt.Println(infoStyle.Render("/help 로 명령을 확인하세요. Ctrl+D 로 종료합니다."))
		fmt.Println()
	}

	input := newChatInput()
	defer input.close()

	start := time.Now()
	exchanged := 0

	for {
		text, err := input.read(promptStyle.Render("훈민> "))
		if err != nil {
			// Ctrl+C aborts the prompt, Ctrl+D is EOF; both end the session
			fmt.Println()
			printChatSummary(start, exchanged, args.Quiet)
			return nil
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if strings.HasPrefix(text, "/") {
			if quit := runChatCommand(a, ch, text); quit {
				printChatSummary(start, exchanged, args.Quiet)
				return nil
			}
			continue
		}

		send := a.Ask(text)
		if err := send(); err != nil {
			fmt.Println(warnStyle.Render("전송 실패: " + err.Error()))
			continue
		}
		if printReply(a) {
			exchanged++
		}
	}
}

// runChatCommand executes a slash command; the returned bool requests exit.
func runChatCommand(a *agent.Agent, ch *channel.Channel, text string) bool {
	switch strings.ToLower(strings.Fields(text)[0]) {
	case "/quit", "/q", "/exit":
		return true

	case "/help", "/h":
		fmt.Println(infoStyle.Render("  /status, /s     연결 상태"))
		fmt.Println(infoStyle.Render("  /validate, /v   문서 검증"))
		fmt.Println(infoStyle.Render("  /quit, /q       종료"))

	case "/status", "/s":
		fmt.Println(infoStyle.Render("연결 상태: " + ch.Status().String()))

	case "/validate", "/v":
		if strings.TrimSpace(a.Buffer().Content) == "" {
			fmt.Println(warnStyle.Render("검증할 문서가 없습니다. --file 로 문서를 지정하세요."))
			return false
		}
		send := a.Validate()
		if err := send(); err != nil {
			fmt.Println(warnStyle.Render("전송 실패: " + err.Error()))
			return false
		}
		printReply(a)

	default:
		fmt.Println(warnStyle.Render("알 수 없는 명령입니다: " + text))
	}
	return false
}

// printReply polls until the worker answers the outstanding request, then
// prints the reply or validation summary. Returns whether an answer arrived.
func printReply(a *agent.Agent) bool {
	deadline := time.Now().Add(replyTimeout)
	for time.Now().Before(deadline) {
		for _, ev := range a.Drain() {
			switch ev.Kind {
			case agent.EventReply:
				fmt.Println(replyStyle.Render(ev.Text))
				return true
			case agent.EventValidation:
				fmt.Println(replyStyle.Render(validation.Summarize(a.Projection().Last())))
				return true
			case agent.EventError:
				fmt.Println(warnStyle.Render(ev.Text))
				return false
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	fmt.Println(warnStyle.Render("응답 시간이 초과되었습니다."))
	return false
}

func printChatSummary(start time.Time, exchanged int, quiet bool) {
	if quiet {
		return
	}
	fmt.Println(infoStyle.Render(fmt.Sprintf("대화 %d건, %s", exchanged, time.Since(start).Round(time.Second))))
}
