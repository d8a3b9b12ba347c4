package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/studydesk/internal/backend"
	"github.com/pavelanni/studydesk/internal/handler"
	"github.com/pavelanni/studydesk/internal/model"
	"github.com/pavelanni/studydesk/internal/orchestrator"
	"github.com/pavelanni/studydesk/internal/quiz"
	"github.com/pavelanni/studydesk/internal/store"
)

// session is a one-shot orchestrator printing to the terminal.
type session struct {
	v        *viper.Viper
	orch     *orchestrator.Orchestrator
	term     *terminal
	graph    *handler.GraphSink
	db       *store.Store
	clientID string
}

func newSession(cmd *cobra.Command) (*session, error) {
	v, err := setup(cmd)
	if err != nil {
		return nil, err
	}
	db, clientID, err := openHistory(v)
	if err != nil {
		return nil, err
	}
	s := &session{
		v:        v,
		term:     newTerminal(cmd.OutOrStdout()),
		graph:    &handler.GraphSink{},
		db:       db,
		clientID: clientID,
	}
	s.orch = orchestrator.New(newBackend(v), orchestrator.Sinks{
		Transcript: s.term,
		Quiz:       s.term,
		Plan:       s.term,
		Graph:      s.graph,
		Summary:    s.term,
	}, recorder(db, clientID))
	return s, nil
}

func (s *session) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// save writes f to path, or to f.Name in the working directory, and
// records the download.
func (s *session) save(kind model.ArtifactKind, f *backend.File, path string) error {
	if path == "" {
		path = filepath.Base(f.Name)
	}
	if err := os.WriteFile(path, f.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(s.term.out, "%s (%d bytes)\n", path, len(f.Data))
	if s.db != nil {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		_, err := s.db.SaveEvent(model.Event{ClientID: s.clientID, Kind: kind, Title: f.Name, FilePath: path})
		if err != nil {
			slog.Warn("failed to record download", "kind", kind, "error", err)
		}
	}
	return nil
}

// run opens a session, calls fn and closes it.
func run(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(cmd.Context(), s)
}

// shown marks an orchestrator error, which the transcript already carries.
func shown(err error) error {
	if err == nil {
		return nil
	}
	return reported{err}
}

func askCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask QUESTION...",
		Short: "Ask a free-form question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, s *session) error {
				_, err := s.orch.Ask(ctx, strings.Join(args, " "))
				return shown(err)
			})
		},
	}
	commonFlags(cmd.Flags())
	backendFlags(cmd.Flags())
	return cmd
}

func quizCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Generate a quiz and answer it interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, s *session) error {
				_, err := s.orch.GenerateExam(ctx, backend.ExamRequest{
					Subject: s.v.GetString("subject"),
					Topic:   s.v.GetString("topic"),
					N:       s.v.GetInt("questions"),
					Level:   s.v.GetString("level"),
				})
				if err != nil {
					return shown(err)
				}
				if s.v.GetBool("no-answer") {
					return nil
				}
				if err := readAnswers(cmd.InOrStdin(), s.term.out, s.orch.Quiz()); err != nil {
					return err
				}
				_, err = s.orch.SubmitQuiz(ctx, s.orch.Quiz().Recorded())
				return shown(err)
			})
		},
	}
	f := cmd.Flags()
	f.String("subject", "", "Subject")
	f.String("topic", "", "Topic (defaults to the subject)")
	f.IntP("questions", "n", orchestrator.DefaultQuestions, "Number of questions")
	f.String("level", orchestrator.DefaultLevel, "Difficulty (easy, medium, hard)")
	f.Bool("no-answer", false, "Print the quiz without answering it")
	commonFlags(f)
	backendFlags(f)
	return cmd
}

// readAnswers prompts for every question of the loaded exam and records
// the replies. Multiple-choice replies are option ids; empty lines skip.
func readAnswers(in io.Reader, out io.Writer, sess *quiz.Session) error {
	exam := sess.Exam()
	if exam == nil {
		return quiz.ErrNotLoaded
	}
	sc := bufio.NewScanner(in)
	prompt := func(label string) (string, bool) {
		fmt.Fprintf(out, "%s> ", label)
		if !sc.Scan() {
			return "", false
		}
		return strings.TrimSpace(sc.Text()), true
	}
	for i, q := range exam.Questions {
		for {
			ans, ok := prompt(fmt.Sprintf("%d", i+1))
			if !ok {
				return sc.Err()
			}
			if q.Type == model.QuestionMultipleChoice && ans != "" && !q.HasOption(ans) {
				fmt.Fprintf(out, "  ? %s\n", optionIDs(q))
				continue
			}
			if err := sess.RecordAnswer(q.ID, ans); err != nil {
				return err
			}
			break
		}
	}
	if exam.VersionText != "" {
		if tr, ok := prompt(model.TranslationKey); ok {
			if err := sess.RecordAnswer(model.TranslationKey, tr); err != nil {
				return err
			}
		}
	}
	fmt.Fprintln(out)
	return sc.Err()
}

func optionIDs(q model.Question) string {
	ids := make([]string, len(q.Options))
	for i, o := range q.Options {
		ids[i] = o.ID
	}
	return strings.Join(ids, ", ")
}

func planCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate a lesson plan",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, s *session) error {
				_, err := s.orch.GeneratePlan(ctx, backend.PlanRequest{
					Subject:       s.v.GetString("subject"),
					Topic:         s.v.GetString("topic"),
					Grade:         s.v.GetString("grade"),
					LessonMinutes: s.v.GetInt("lesson-minutes"),
					GlobalGoals:   s.v.GetString("global-goals"),
				})
				if err != nil || !s.v.GetBool("pdf") {
					return shown(err)
				}
				f, err := s.orch.PlanPDF(ctx)
				if err != nil {
					return shown(err)
				}
				return s.save(model.KindPlanPDF, f, s.v.GetString("output"))
			})
		},
	}
	f := cmd.Flags()
	f.String("subject", "", "Subject")
	f.String("topic", "", "Topic")
	f.String("grade", "", "Class or grade")
	f.Int("lesson-minutes", orchestrator.DefaultLessonMinutes, "Minutes per lesson")
	f.String("global-goals", "", "Goals of the whole unit")
	f.Bool("pdf", false, "Also download the plan as PDF")
	f.StringP("output", "o", "", "PDF output path (default: server file name)")
	commonFlags(f)
	backendFlags(f)
	return cmd
}

func mapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Generate a concept map as a Graphviz document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, s *session) error {
				_, err := s.orch.GenerateConceptMap(ctx, backend.ConceptMapRequest{
					Subject:  s.v.GetString("subject"),
					Topic:    s.v.GetString("topic"),
					MaxNodes: s.v.GetInt("max-nodes"),
				})
				if err != nil {
					return shown(err)
				}
				dot, err := s.orch.ExportConceptMap(ctx)
				if err != nil {
					return shown(err)
				}
				out := s.v.GetString("output")
				if out == "-" {
					_, err = s.term.out.Write(dot)
					return err
				}
				if out == "" {
					out = handler.ConceptMapFilename
				}
				return s.save(model.KindConceptMap, &backend.File{Name: out, Data: dot}, out)
			})
		},
	}
	f := cmd.Flags()
	f.String("subject", "", "Subject")
	f.String("topic", "", "Topic")
	f.Int("max-nodes", orchestrator.DefaultMaxNodes, "Maximum number of nodes")
	f.StringP("output", "o", "", "DOT output path (- for stdout)")
	commonFlags(f)
	backendFlags(f)
	return cmd
}

func slidesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slides",
		Short: "Generate a slide deck",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, s *session) error {
				f, err := s.orch.GenerateSlides(ctx, backend.SlidesRequest{
					Subject: s.v.GetString("subject"),
					Topic:   s.v.GetString("topic"),
					NSlides: s.v.GetInt("n-slides"),
				})
				if err != nil {
					return shown(err)
				}
				return s.save(model.KindSlides, f, s.v.GetString("output"))
			})
		},
	}
	f := cmd.Flags()
	f.String("subject", "", "Subject")
	f.String("topic", "", "Topic")
	f.Int("n-slides", orchestrator.DefaultSlides, "Number of slides")
	f.StringP("output", "o", "", "Output path (default: server file name)")
	commonFlags(f)
	backendFlags(f)
	return cmd
}

func summarizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summarize [FILE]",
		Short: "Summarize a topic, text or document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, s *session) error {
				req := backend.SummarizeRequest{
					Topic:  s.v.GetString("topic"),
					Length: s.v.GetString("length"),
					Text:   s.v.GetString("text"),
				}
				if len(args) == 1 {
					if args[0] == "-" {
						data, err := io.ReadAll(cmd.InOrStdin())
						if err != nil {
							return fmt.Errorf("read stdin: %w", err)
						}
						req.Text = string(data)
					} else {
						f, err := os.Open(args[0])
						if err != nil {
							return err
						}
						defer f.Close()
						req.File, req.FileName = f, filepath.Base(args[0])
					}
				}
				_, err := s.orch.Summarize(ctx, req)
				return shown(err)
			})
		},
	}
	f := cmd.Flags()
	f.String("topic", "", "Topic")
	f.String("length", orchestrator.DefaultLength, "Summary length (short, medium, long)")
	f.String("text", "", "Text to summarize")
	commonFlags(f)
	backendFlags(f)
	return cmd
}
