package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/resource-scheduler/internal/application"
)

var (
	errBadRequestBody    = errors.New("無効なリクエスト形式です。")
	errInvalidEventID    = errors.New("無効なイベント ID です。")
	errInvalidResourceID = errors.New("無効なリソース ID です。")
	errInvalidCalendar   = errors.New("iCalendar の形式が不正です。")
	errMissingAPIKey     = errors.New("API キーを指定してください。")
	errAPIKeyRejected    = errors.New("API キーが無効です。")
	errAPIKeyValidation  = errors.New("API キーの検証中にエラーが発生しました。")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var (
		vErr     *application.ValidationError
		conflict *application.ConflictError
		notFound *application.NotFoundError
	)
	switch {
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			Message: "入力内容に誤りがあります。",
			Errors:  localizeValidationErrors(vErr),
		})
	case errors.As(err, &conflict):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "RESOURCE_CONFLICT",
			Message:   "リソースは既に重複する時間帯のイベントに割り当てられています。",
			Conflict:  toConflictDTO(conflict),
		})
	case errors.Is(err, application.ErrConflict):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "RESOURCE_CONFLICT",
			Message:   localizedStatusMessage(http.StatusConflict),
		})
	case errors.As(err, &notFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{
			ErrorCode: strings.ToUpper(notFound.Entity) + "_NOT_FOUND",
			Message:   localizedNotFoundMessage(notFound.Entity),
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: localizedStatusMessage(http.StatusNotFound)})
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_REQUIRED",
			Message:   localizedStatusMessage(http.StatusUnauthorized),
		})
	default:
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: localizedStatusMessage(http.StatusInternalServerError)})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusUnauthorized:
		return "認証が必要です。"
	case http.StatusNotFound:
		return "指定されたリソースが見つかりません。"
	case http.StatusConflict:
		return "要求はリソースの現在の状態と競合しています。"
	case http.StatusUnprocessableEntity:
		return "入力内容に誤りがあります。"
	default:
		return "サーバー内部でエラーが発生しました。"
	}
}

func localizedNotFoundMessage(entity string) string {
	switch entity {
	case application.EntityEvent:
		return "指定されたイベントが見つかりません。"
	case application.EntityResource:
		return "指定されたリソースが見つかりません。"
	default:
		return localizedStatusMessage(http.StatusNotFound)
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "title is required":
		return "タイトルは必須です。"
	case "start is required":
		return "開始日時は必須です。"
	case "end is required":
		return "終了日時は必須です。"
	case "end must be after start":
		return "終了日時は開始日時より後である必要があります。"
	case "must be an RFC 3339 timestamp":
		return "日時は RFC 3339 形式で指定してください。"
	case "name is required":
		return "名前は必須です。"
	case "type is required":
		return "種別は必須です。"
	case "event_id is required":
		return "イベント ID は必須です。"
	case "resource_id is required":
		return "リソース ID は必須です。"
	case "at least one resource is required":
		return "少なくとも 1 件のリソースを指定してください。"
	case "resource id must not be blank":
		return "リソース ID を空にすることはできません。"
	case "at least one event is required":
		return "少なくとも 1 件のイベントを指定してください。"
	default:
		return message
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
	Conflict  *conflictDTO      `json:"conflict,omitempty"`
}

type conflictDTO struct {
	ResourceID         string `json:"resource_id"`
	ResourceName       string `json:"resource_name,omitempty"`
	EventID            string `json:"event_id,omitempty"`
	ConflictingEventID string `json:"conflicting_event_id"`
}

func toConflictDTO(conflict *application.ConflictError) *conflictDTO {
	if conflict == nil {
		return nil
	}
	return &conflictDTO{
		ResourceID:         conflict.ResourceID,
		ResourceName:       conflict.ResourceName,
		EventID:            conflict.EventID,
		ConflictingEventID: conflict.ConflictingEventID,
	}
}
