package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const DarajaSandboxURL = "https://sandbox.safaricom.co.ke"

type DarajaConfig struct {
	BaseURL         string
	ConsumerKey     string
	ConsumerSecret  string
	ShortCode       string
	PassKey         string
	PartyB          string // defaults to ShortCode; set to the till number for buy-goods
	TransactionType string
	Timeout         time.Duration
}

// DarajaProvider implements STK push against Safaricom's Daraja API.
type DarajaProvider struct {
	cfg    DarajaConfig
	client *http.Client
	now    func() time.Time
	logger *zap.Logger
}

func NewDarajaProvider(cfg DarajaConfig, logger *zap.Logger) *DarajaProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DarajaSandboxURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PartyB == "" {
		cfg.PartyB = cfg.ShortCode
	}
	if cfg.TransactionType == "" {
		cfg.TransactionType = "CustomerPayBillOnline"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	tokens := &darajaTokenSource{
		url:    cfg.BaseURL + "/oauth/v1/generate?grant_type=client_credentials",
		key:    cfg.ConsumerKey,
		secret: cfg.ConsumerSecret,
		client: &http.Client{Timeout: cfg.Timeout},
	}
	return &DarajaProvider{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &oauth2.Transport{
				Source: oauth2.ReuseTokenSource(nil, tokens),
				Base:   http.DefaultTransport,
			},
		},
		now:    time.Now,
		logger: logger,
	}
}

type stkPushBody struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            string `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type darajaErrorBody struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func (p *DarajaProvider) InitiateSTKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error) {
	ts := Timestamp(p.now())
	txType := req.TransactionType
	if txType == "" {
		txType = p.cfg.TransactionType
	}
	body, err := json.Marshal(stkPushBody{
		BusinessShortCode: p.cfg.ShortCode,
		Password:          Password(p.cfg.ShortCode, p.cfg.PassKey, ts),
		Timestamp:         ts,
		TransactionType:   txType,
		Amount:            req.Amount,
		PartyA:            req.PhoneNumber,
		PartyB:            p.cfg.PartyB,
		PhoneNumber:       req.PhoneNumber,
		CallBackURL:       req.CallbackURL,
		AccountReference:  req.AccountReference,
		TransactionDesc:   req.TransactionDesc,
	})
	if err != nil {
		return nil, err
	}
	apiReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	apiReq.Header.Set("Content-Type", "application/json")
	p.logger.Info("stk push request",
		zap.String("phone", req.PhoneNumber),
		zap.String("amount", req.Amount),
		zap.String("account_reference", req.AccountReference),
		zap.String("callback_url", req.CallbackURL),
	)
	resp, err := p.client.Do(apiReq)
	if err != nil {
		return nil, fmt.Errorf("stk push: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("stk push: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb darajaErrorBody
		_ = json.Unmarshal(respBody, &eb)
		apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: eb.RequestID, Code: eb.ErrorCode, Message: eb.ErrorMessage}
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		p.logger.Warn("stk push rejected", zap.Int("status", resp.StatusCode), zap.String("error_code", eb.ErrorCode), zap.String("request_id", eb.RequestID))
		return nil, apiErr
	}
	var out STKPushResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("stk push: decode response: %w", err)
	}
	if out.ResponseCode != "0" {
		return nil, &APIError{StatusCode: resp.StatusCode, Code: out.ResponseCode, Message: out.ResponseDescription}
	}
	p.logger.Info("stk push accepted",
		zap.String("checkout_request_id", out.CheckoutRequestID),
		zap.String("merchant_request_id", out.MerchantRequestID),
	)
	return &out, nil
}

// darajaTokenSource fetches client-credential tokens. Daraja wants a GET with
// basic auth, which the stock clientcredentials flow does not send.
type darajaTokenSource struct {
	url    string
	key    string
	secret string
	client *http.Client
}

type darajaToken struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   json.Number `json:"expires_in"`
}

func (s *darajaTokenSource) Token() (*oauth2.Token, error) {
	req, err := http.NewRequest(http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(s.key, s.secret)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mpesa oauth: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "oauth token request failed"}
	}
	var out darajaToken
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("mpesa oauth: decode: %w", err)
	}
	tok := &oauth2.Token{AccessToken: out.AccessToken, TokenType: "Bearer"}
	if secs, err := out.ExpiresIn.Int64(); err == nil && secs > 0 {
		tok.Expiry = time.Now().Add(time.Duration(secs) * time.Second)
	}
	return tok, nil
}
