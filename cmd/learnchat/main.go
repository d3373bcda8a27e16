package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"

	"learning_agents/internal/chatclient"
	"learning_agents/internal/domain"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		addr        string
		waitTimeout time.Duration
	)
	cmd := &cobra.Command{
		Use:          "learnchat",
		Short:        "Terminal chat client for the teacher agent",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if env := strings.TrimSpace(os.Getenv("API_BASE_URL")); env != "" && !cmd.Flags().Changed("addr") {
				addr = env
			}
			client := chatclient.New(addr, nil)
			if err := client.WaitHealthy(cmd.Context(), waitTimeout); err != nil {
				return fmt.Errorf("teacher health check failed: %w", err)
			}
			return newChat(client).run()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "http://localhost:8000", "learnd base URL (env API_BASE_URL)")
	cmd.Flags().DurationVar(&waitTimeout, "wait", 10*time.Second, "how long to wait for /healthz")
	return cmd
}

type chat struct {
	client *chatclient.Client
	app    *tview.Application
	pages  *tview.Pages

	history *tview.TextView
	input   *tview.InputField
	status  *tview.TextView
	quiz    *tview.Form

	session *chatclient.QuizSession
}

func newChat(client *chatclient.Client) *chat {
	c := &chat{client: client, app: tview.NewApplication()}

	c.history = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true).
		SetScrollable(true)
	c.history.SetTitle("Learning Agents").SetBorder(true)

	c.input = tview.NewInputField().
		SetLabel("質問: ")
	c.input.SetBorder(true).SetTitle("Enter = ask")

	c.status = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	c.status.SetBorder(true).SetTitle("Status")
	c.setStatus(fmt.Sprintf("Connected to %s | F2 %s | F3 %s | F10 quit",
		client.BaseURL(), chatclient.PracticeAction.Label, chatclient.ReviewAction.Label))

	chatLayout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(c.history, 0, 1, false).
		AddItem(c.input, 3, 0, true).
		AddItem(c.status, 3, 0, false)

	c.quiz = tview.NewForm()
	c.quiz.SetBorder(true).SetTitle("クイズ (Esc = back)")

	c.pages = tview.NewPages().
		AddPage("chat", chatLayout, true, true).
		AddPage("quiz", c.quiz, true, false)

	c.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		question := strings.TrimSpace(c.input.GetText())
		if question == "" {
			return
		}
		c.input.SetText("")
		c.ask(func(ctx context.Context) (chatclient.Answer, error) {
			return c.client.Ask(ctx, question, "", "")
		}, question)
	})

	c.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF10:
			c.app.Stop()
			return nil
		case tcell.KeyF2:
			c.runAction(chatclient.PracticeAction)
			return nil
		case tcell.KeyF3:
			c.runAction(chatclient.ReviewAction)
			return nil
		case tcell.KeyEscape:
			if name, _ := c.pages.GetFrontPage(); name == "quiz" {
				c.showChat()
				return nil
			}
		}
		return event
	})
	return c
}

func (c *chat) run() error {
	return c.app.SetRoot(c.pages, true).EnableMouse(true).SetFocus(c.input).Run()
}

func (c *chat) runAction(action chatclient.QuickAction) {
	c.ask(func(ctx context.Context) (chatclient.Answer, error) {
		return c.client.Run(ctx, action)
	}, action.Question)
}

// ask runs the request off the UI goroutine and renders the answer when it
// arrives.
func (c *chat) ask(call func(ctx context.Context) (chatclient.Answer, error), question string) {
	c.appendHistory(fmt.Sprintf("[yellow]あなた:[-] %s\n", tview.Escape(question)))
	c.setStatus("考え中...")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), chatclient.DefaultTimeout)
		defer cancel()
		answer, err := call(ctx)
		c.app.QueueUpdateDraw(func() {
			if err != nil {
				c.appendHistory(fmt.Sprintf("[red]エラーが発生しました: %s[-]\n\n", tview.Escape(err.Error())))
				c.setStatus("Request failed")
				return
			}
			c.appendHistory("[green]先生:[-] " + tview.Escape(chatclient.RenderAnswer(answer)) + "\n")
			c.setStatus(fmt.Sprintf("%s 処理完了", answer.QuestionType))
			if answer.Quiz != nil && len(answer.Quiz.Questions) > 0 {
				c.startQuiz(answer.Quiz.Questions)
			}
		})
	}()
}

func (c *chat) startQuiz(questions []domain.QuizQuestion) {
	c.session = chatclient.NewQuizSession(questions)
	c.quiz.Clear(true)
	for idx, q := range questions {
		c.quiz.AddDropDown(fmt.Sprintf("問題 %d: %s", idx+1, q.Question), q.Options, -1, func(option string, _ int) {
			if option == "" {
				return
			}
			if err := c.session.Choose(idx, option); err != nil {
				c.setStatus(err.Error())
			}
		})
	}
	c.quiz.AddButton("回答を提出", c.submitQuiz)
	c.quiz.AddButton("戻る", c.showChat)
	c.pages.SwitchToPage("quiz")
	c.app.SetFocus(c.quiz)
}

func (c *chat) submitQuiz() {
	if c.session == nil || c.session.Submitted() {
		c.showChat()
		return
	}
	grade := c.session.Submit()
	c.appendHistory("[aqua]クイズ結果[-]\n" + tview.Escape(chatclient.RenderGrade(grade)) + "\n")
	c.setStatus(fmt.Sprintf("正解 %d/%d", grade.Correct, grade.Total))
	c.showChat()
}

func (c *chat) showChat() {
	c.pages.SwitchToPage("chat")
	c.app.SetFocus(c.input)
}

func (c *chat) appendHistory(text string) {
	_, _ = fmt.Fprint(c.history, text)
	c.history.ScrollToEnd()
}

func (c *chat) setStatus(msg string) {
	c.status.SetText(msg)
}
