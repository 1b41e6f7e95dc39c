// internal/runtime/googleapi.go — adapts *gmail.Service to our small interface
package runtime

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	gc "github.com/Twine-Labs/instantly-email-warming-filter/internal/gmail"
)

type googleClient struct{ svc *gmail.Service }

func NewGoogleAPIClient(svc *gmail.Service) gc.Client { return &googleClient{svc} }

func (g *googleClient) List(ctx context.Context, q gc.Query, pageToken string, pageSize int64) (gc.ListPage, error) {
	call := g.svc.Users.Messages.List("me")
	if q.Raw != "" {
		call = call.Q(q.Raw)
	}
	if q.LabelID != "" {
		call = call.LabelIds(string(q.LabelID))
	}
	if pageSize > 0 {
		call = call.MaxResults(pageSize)
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	res, err := call.Context(ctx).Do()
	if err != nil {
		return gc.ListPage{}, classifyErr("list messages", err)
	}
	var ids []gc.MessageID
	for _, m := range res.Messages {
		ids = append(ids, gc.MessageID(m.Id))
	}
	return gc.ListPage{IDs: ids, NextPageToken: res.NextPageToken}, nil
}

func (g *googleClient) Get(ctx context.Context, id gc.MessageID) (gc.MessageDetail, error) {
	msg, err := g.svc.Users.Messages.Get("me", string(id)).Format("full").Context(ctx).Do()
	if err != nil {
		return gc.MessageDetail{}, classifyErr(fmt.Sprintf("get message %s", id), err)
	}
	detail := gc.MessageDetail{ID: id}
	if msg.Payload == nil {
		return detail, nil
	}
	for _, h := range msg.Payload.Headers {
		detail.Headers = append(detail.Headers, gc.Header{Name: h.Name, Value: h.Value})
	}
	detail.Parts = collectParts(msg.Payload, nil)
	return detail, nil
}

// collectParts walks the MIME tree and decodes every part that carries data,
// including the payload itself for single-part messages.
func collectParts(part *gmail.MessagePart, out []gc.BodyPart) []gc.BodyPart {
	if part == nil {
		return out
	}
	if part.Body != nil && part.Body.Data != "" {
		if data, err := decodeBody(part.Body.Data); err == nil {
			out = append(out, gc.BodyPart{MIMEType: part.MimeType, Data: data})
		}
	}
	for _, child := range part.Parts {
		out = collectParts(child, out)
	}
	return out
}

func decodeBody(data string) ([]byte, error) {
	if b, err := base64.URLEncoding.DecodeString(data); err == nil {
		return b, nil
	}
	return base64.RawURLEncoding.DecodeString(data)
}

func (g *googleClient) BatchModify(ctx context.Context, ids []gc.MessageID, ops gc.ModifyOps) error {
	req := &gmail.BatchModifyMessagesRequest{Ids: toStrings(ids)}
	if len(ops.AddLabels) > 0 {
		req.AddLabelIds = toStringsL(ops.AddLabels)
	}
	if len(ops.RemoveLabels) > 0 {
		req.RemoveLabelIds = toStringsL(ops.RemoveLabels)
	}
	if err := g.svc.Users.Messages.BatchModify("me", req).Context(ctx).Do(); err != nil {
		return classifyErr("batch modify", err)
	}
	return nil
}

func (g *googleClient) ListLabels(ctx context.Context) (map[string]gc.LabelID, error) {
	lr, err := g.svc.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return nil, classifyErr("list labels", err)
	}
	byName := map[string]gc.LabelID{}
	for _, l := range lr.Labels {
		byName[l.Name] = gc.LabelID(l.Id)
	}
	return byName, nil
}

func (g *googleClient) CreateLabel(ctx context.Context, name string) (gc.LabelID, error) {
	created, err := g.svc.Users.Labels.Create("me", &gmail.Label{
		Name: name,
		// keep the label out of the sidebar but let its messages show up
		LabelListVisibility:   "labelHide",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return "", classifyErr(fmt.Sprintf("create label %q", name), err)
	}
	return gc.LabelID(created.Id), nil
}

// classifyErr sorts a remote failure into the taxonomy the sweep loop acts
// on: auth failures end the run, transient failures are retried, everything
// else aborts the current iteration.
func classifyErr(op string, err error) error {
	wrapped := fmt.Errorf("%s: %w", op, err)

	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return &gc.AuthError{Err: wrapped}
	}

	var ge *googleapi.Error
	if !errors.As(err, &ge) {
		// transport-level failure (reset, timeout, DNS)
		return &gc.TransientError{Err: wrapped}
	}
	switch {
	case ge.Code == http.StatusUnauthorized:
		return &gc.AuthError{Err: wrapped}
	case ge.Code == http.StatusTooManyRequests, ge.Code >= 500:
		return &gc.TransientError{Err: wrapped}
	case ge.Code == http.StatusForbidden:
		if rateReason(ge) {
			return &gc.TransientError{Err: wrapped}
		}
		return &gc.AuthError{Err: wrapped}
	default:
		return &gc.PermanentError{Err: wrapped}
	}
}

func rateReason(ge *googleapi.Error) bool {
	for _, item := range ge.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded", "dailyLimitExceeded":
			return true
		}
	}
	return false
}

func toStrings(ids []gc.MessageID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func toStringsL(ids []gc.LabelID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
