package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/studydesk/internal/backend"
	"github.com/pavelanni/studydesk/internal/i18n"
	"github.com/pavelanni/studydesk/internal/quiz"
)

var (
	// ErrStale is returned when a reply or failure arrived after a newer
	// request of the same kind and was dropped.
	ErrStale        = errors.New("reply superseded by a newer request")
	ErrNoPlan       = errors.New("no lesson plan")
	ErrNoConceptMap = errors.New("no concept map")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError rejects a request before it is sent.
type ValidationError struct {
	Field string
	Tag   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s (%s)", strings.ToLower(e.Field), e.Tag)
}

func (e *ValidationError) messageID() string {
	switch {
	case e.Field == "Question":
		return "ValidationQuestion"
	case e.Tag == "required_without_all":
		return "ValidationTopicOrFile"
	case strings.HasPrefix(e.Tag, "required") && (e.Field == "Topic" || e.Field == "Subject"):
		return "ValidationTopic"
	default:
		return "ValidationInvalid"
	}
}

// check runs the struct validator and reports the first failing field.
func check(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &ValidationError{Field: verrs[0].Field(), Tag: verrs[0].Tag()}
	}
	return fmt.Errorf("validate request: %w", err)
}

var opMessages = map[backend.Op]string{
	backend.OpAsk:                "ErrorAsk",
	backend.OpGenerateExam:       "ErrorGenerateExam",
	backend.OpGradeExam:          "ErrorGradeExam",
	backend.OpGeneratePlan:       "ErrorGeneratePlan",
	backend.OpGenerateConceptMap: "ErrorGenerateConceptMap",
	backend.OpGenerateSlides:     "ErrorGenerateSlides",
	backend.OpPlanPDF:            "ErrorPlanPDF",
	backend.OpSummarize:          "ErrorSummarize",
}

// Message renders err for the user in the context's language. Server
// messages are shown verbatim; everything else maps to a fixed text.
func Message(ctx context.Context, err error) string {
	var (
		ve *ValidationError
		se *backend.ServerError
		te *backend.TransportError
	)
	switch {
	case errors.As(err, &ve):
		return i18n.Td(ctx, ve.messageID(), map[string]any{"Field": strings.ToLower(ve.Field)})
	case errors.As(err, &se):
		if se.Message != "" {
			return se.Message
		}
		if id, ok := opMessages[se.Op]; ok {
			return i18n.T(ctx, id)
		}
		return i18n.T(ctx, "ErrorAsk")
	case errors.As(err, &te):
		return i18n.T(ctx, "NetworkError")
	case errors.Is(err, quiz.ErrNotLoaded), errors.Is(err, quiz.ErrNoExam):
		return i18n.T(ctx, "NoQuiz")
	case errors.Is(err, quiz.ErrSuperseded):
		return i18n.T(ctx, "QuizReplaced")
	case errors.Is(err, ErrNoPlan):
		return i18n.T(ctx, "NoPlan")
	case errors.Is(err, ErrNoConceptMap):
		return i18n.T(ctx, "NoConceptMap")
	}
	return err.Error()
}
