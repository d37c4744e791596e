package httptransport

import (
	"time"

	"agegate/internal/cart"
	"agegate/internal/diagnostics"
	"agegate/pkg/domain"
)

type SelectBankRequest struct {
	AuthorisationServerID string `json:"authorisationServerId"`
	CartID                string `json:"cartId"`

	bankID domain.AuthServerID
	cartID domain.CartID
}

func (r *SelectBankRequest) Validate() error {
	bankID, err := domain.ParseAuthServerID(r.AuthorisationServerID)
	if err != nil {
		return err
	}
	cartID, err := domain.ParseCartID(r.CartID)
	if err != nil {
		return err
	}
	r.bankID, r.cartID = bankID, cartID
	return nil
}

type SelectBankResponse struct {
	AuthURL string `json:"authUrl"`
}

// CartRequest is the body of the cart gate and reset endpoints. Code is the
// optional bypass code, honoured only by /restricted-items.
type CartRequest struct {
	CartID string `json:"cartId"`
	Code   string `json:"code,omitempty"`

	cartID domain.CartID
}

func (r *CartRequest) Validate() error {
	cartID, err := domain.ParseCartID(r.CartID)
	if err != nil {
		return err
	}
	r.cartID = cartID
	return nil
}

type RetrieveTokensResponse struct {
	Claims       map[string]any `json:"claims"`
	Token        string         `json:"token"`
	UserInfo     map[string]any `json:"userInfo,omitempty"`
	SessionToken string         `json:"sessionToken"`
	ExpiresAt    time.Time      `json:"expiresAt"`
}

type ValidateCartResponse struct {
	Message      string          `json:"message"`
	Skipped      bool            `json:"skipped,omitempty"`
	RemovedItems []cart.LineItem `json:"removedItems"`
	FailedItems  []cart.LineItem `json:"failedItems,omitempty"`
}

type RestrictedItemsResponse struct {
	RestrictedSKUs []string `json:"restrictedSKUs"`
}

type SkippedResponse struct {
	Message string `json:"message"`
	Skipped bool   `json:"skipped"`
}

type VerificationStatusResponse struct {
	Verified  bool       `json:"verified"`
	State     string     `json:"state"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type CatalogRefreshResponse struct {
	RestrictedSKUCount int       `json:"restrictedSkuCount"`
	RefreshedAt        time.Time `json:"refreshedAt"`
}

type LogsResponse struct {
	Checks []diagnostics.Check `json:"checks"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
