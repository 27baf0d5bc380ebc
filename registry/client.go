// Package registry spricht mit dem DOI-Registry-Dienst (Statusliste, DataCite-XML, Updates).
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"rafts/config"
	"rafts/datacite"
	"rafts/errs"
	"rafts/metrics"
	"rafts/models"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// CookieName ist das SSO-Cookie, mit dem die Registry authentifiziert.
const CookieName = "CADC_SSO"

const breakerName = "doi-registry"

// errCallerGone markiert Abbrüche durch den Aufrufer; sie zählen nicht als Registry-Ausfall.
var errCallerGone = errors.New("request cancelled by caller")

type response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client kapselt die HTTP-Aufrufe an die Registry.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Logger  *zap.Logger

	breaker *gobreaker.CircuitBreaker[*response]
}

// NewClient erstellt einen Registry-Client. Weiterleitungen werden nicht verfolgt,
// weil die Registry Erfolg mit 303 meldet.
func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	metrics.BreakerState.WithLabelValues(breakerName).Set(0)

	breaker := gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Registry circuit breaker state change",
				zap.String("from", from.String()), zap.String("to", to.String()))
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
		// 4xx sind Antworten, keine Ausfälle
		IsSuccessful: func(err error) bool {
			var up *errs.UpstreamError
			if err == nil || errors.Is(err, errCallerGone) {
				return true
			}
			return errors.As(err, &up) && up.StatusCode > 0 && up.StatusCode < 500
		},
	})

	return &Client{
		BaseURL: strings.TrimRight(cfg.DOIRegistryURL, "/"),
		HTTP:    httpClient,
		Logger:  logger,
		breaker: breaker,
	}
}

// List holt die Statusliste aller DOIs, die der Token-Inhaber sehen darf.
func (c *Client) List(ctx context.Context, token string) ([]models.DoiRecord, error) {
	const op = "fetch DOI list"
	resp, err := c.do(ctx, op, token, http.MethodGet, c.BaseURL, "application/xml", nil, "")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errs.Upstream(op, resp.StatusCode, resp.Body)
	}
	return datacite.ParseStatusList(resp.Body)
}

// GetDataCite holt das DataCite-XML eines einzelnen DOI.
func (c *Client) GetDataCite(ctx context.Context, token, suffix string) ([]byte, error) {
	const op = "fetch DataCite XML"
	resp, err := c.do(ctx, op, token, http.MethodGet, c.recordURL(suffix), "text/xml", nil, "")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errs.Upstream(op, resp.StatusCode, resp.Body)
	}
	return resp.Body, nil
}

// CreateDraft legt einen neuen DOI-Entwurf an und gibt dessen Suffix zurück.
func (c *Client) CreateDraft(ctx context.Context, token string, metadata any) (string, error) {
	const op = "create DOI"
	body, contentType, err := jsonPart("doiMetaData", metadata)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	resp, err := c.do(ctx, op, token, http.MethodPost, c.BaseURL, "", body, contentType)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusSeeOther {
		return "", errs.Upstream(op, resp.StatusCode, resp.Body)
	}
	location := resp.Header.Get("Location")
	suffix := datacite.ExtractSuffix(strings.TrimRight(location, "/"))
	if suffix == "" {
		return "", &errs.UpstreamError{Op: op, StatusCode: resp.StatusCode, Message: "no Location header in response"}
	}
	c.Logger.Info("DOI draft created", zap.String("suffix", suffix))
	return suffix, nil
}

// Update ändert Status und/oder Reviewer eines DOI.
func (c *Client) Update(ctx context.Context, token, suffix string, update models.NodeUpdate) error {
	const op = "update DOI"
	body, contentType, err := jsonPart("doiNodeData", update)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	resp, err := c.do(ctx, op, token, http.MethodPost, c.recordURL(suffix), "", body, contentType)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusSeeOther || (resp.StatusCode >= 200 && resp.StatusCode < 300) {
		return nil
	}
	return errs.Upstream(op, resp.StatusCode, resp.Body)
}

// Delete entfernt einen DOI.
func (c *Client) Delete(ctx context.Context, token, suffix string) error {
	const op = "delete DOI"
	resp, err := c.do(ctx, op, token, http.MethodDelete, c.recordURL(suffix), "", nil, "")
	if err != nil {
		return err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	up := errs.Upstream(op, resp.StatusCode, resp.Body)
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		up.Message = "Not authorized to delete this resource"
	case http.StatusForbidden:
		up.Message = "Access denied - you may not have permission to delete this DOI"
	case http.StatusNotFound:
		up.Message = "DOI not found"
	}
	return up
}

func (c *Client) recordURL(suffix string) string {
	return c.BaseURL + "/" + url.PathEscape(suffix)
}

// do führt eine Anfrage über den Circuit Breaker aus. Transportfehler und 5xx
// werden als Fehler gemeldet, alle anderen Statuscodes wertet der Aufrufer aus.
func (c *Client) do(ctx context.Context, op, token, method, target, accept string, body []byte, contentType string) (*response, error) {
	if token == "" {
		return nil, errs.ErrNotAuthenticated
	}
	if err := ctx.Err(); err != nil {
		return nil, &errs.UpstreamError{Op: op, Err: err}
	}
	log := c.Logger.With(zap.String("op", op), zap.String("method", method), zap.String("url", target))

	resp, err := c.breaker.Execute(func() (*response, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, err
		}
		req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
		if accept != "" {
			req.Header.Set("Accept", accept)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		httpResp, err := c.HTTP.Do(req)
		if err != nil {
			return nil, &errs.UpstreamError{Op: op, Err: callerError(ctx, err)}
		}
		defer httpResp.Body.Close()

		data, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return nil, &errs.UpstreamError{Op: op, StatusCode: httpResp.StatusCode, Err: callerError(ctx, err)}
		}
		if httpResp.StatusCode >= 500 {
			return nil, errs.Upstream(op, httpResp.StatusCode, data)
		}
		return &response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: data}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			log.Warn("Registry request rejected by circuit breaker")
			return nil, &errs.UpstreamError{Op: op, StatusCode: http.StatusServiceUnavailable, Message: "DOI registry temporarily unavailable", Err: err}
		}
		log.Error("Registry request failed", zap.Error(err))
		return nil, err
	}
	log.Debug("Registry response", zap.Int("status", resp.StatusCode))
	return resp, nil
}

// callerError ersetzt Transportfehler durch den Abbruchgrund, wenn der Context des Aufrufers beendet ist.
func callerError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", errCallerGone, ctxErr)
	}
	return err
}

// jsonPart baut einen multipart/form-data-Body mit einem JSON-Teil, wie ihn die Registry erwartet.
func jsonPart(field string, v any) ([]byte, string, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, "", err
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename="blob"`, field))
	header.Set("Content-Type", "application/json")
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(payload); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
