package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"SteamGuard/internal/errs"
)

// GetConfirmations запрашивает очередь подтверждений. params — подписанные
// параметры (p, a, k, t, m, tag), их формирует сервис подтверждений.
func (c *Client) GetConfirmations(ctx context.Context, params url.Values, cookies []*http.Cookie) (*ConfirmationsResponse, error) {
	body, err := c.Get(ctx, c.communityURL+"/mobileconf/getlist?"+params.Encode(), cookies)
	if err != nil {
		return nil, err
	}
	var resp ConfirmationsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode confirmations: %v: %w", err, errs.ErrProtocol)
	}
	if resp.NeedAuth {
		return nil, fmt.Errorf("confirmations: needauth: %w", errs.ErrAuthorization)
	}
	return &resp, nil
}

// SendConfirmation выполняет одиночную операцию (op=allow|cancel) над подтверждением.
func (c *Client) SendConfirmation(ctx context.Context, params url.Values, cookies []*http.Cookie) (*ConfirmationActionResponse, error) {
	body, err := c.Get(ctx, c.communityURL+"/mobileconf/ajaxop?"+params.Encode(), cookies)
	if err != nil {
		return nil, err
	}
	return decodeAction(body)
}

// SendMultiConfirmation выполняет операцию сразу над несколькими подтверждениями (cid[]/ck[]).
func (c *Client) SendMultiConfirmation(ctx context.Context, form url.Values, cookies []*http.Cookie) (*ConfirmationActionResponse, error) {
	body, err := c.PostForm(ctx, c.communityURL+"/mobileconf/multiajaxop", form, cookies)
	if err != nil {
		return nil, err
	}
	return decodeAction(body)
}

func decodeAction(body []byte) (*ConfirmationActionResponse, error) {
	var resp ConfirmationActionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode confirmation action: %v: %w", err, errs.ErrProtocol)
	}
	if resp.NeedAuth {
		return nil, fmt.Errorf("confirmation action: needauth: %w", errs.ErrAuthorization)
	}
	return &resp, nil
}
