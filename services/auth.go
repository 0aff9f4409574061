// wager-session-system/services/auth.go
package services

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"wager-session-system/models"
)

// Scope names, used in error messages only.
const (
	ScopeOwner        = "owner-governance"
	ScopeAdmin        = "admin"
	ScopeWinReporter  = "win-reporter"
	ScopeAccountOwner = "account-ownership"
	scopeBankTransfer = "bank-transfer"
)

// Gateway roles that can satisfy the routine scopes.
const (
	RoleAdmin       = "admin"
	RoleWinReporter = "win_reporter"
)

// AuthContext carries the caller's identity for one request. It is built by
// the handler from the gateway headers and passed into every mutating
// operation; nothing about it is cached beyond the call.
type AuthContext struct {
	Caller string
	Roles  []string
}

func (a AuthContext) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthFromCtx rebuilds the AuthContext from the values the user-context
// middleware attached to the request.
func AuthFromCtx(c *fiber.Ctx) AuthContext {
	auth := AuthContext{}
	if v, ok := c.Locals("user_id").(string); ok {
		auth.Caller = v
	}
	if v, ok := c.Locals("user_roles").([]string); ok {
		auth.Roles = v
	}
	return auth
}

// Authorizer evaluates the privilege scopes. Each check is a fresh predicate
// per call; a failed check aborts the operation before any state is touched.
type Authorizer struct {
	DB          *gorm.DB
	Ledger      Ledger
	Owner       string // root operator authority
	WinReporter string // result oracle authority
}

func NewAuthorizer(db *gorm.DB, ledger Ledger) *Authorizer {
	owner := os.Getenv("OWNER_ACCOUNT")
	if owner == "" {
		log.Fatal("OWNER_ACCOUNT environment variable is required")
	}
	reporter := os.Getenv("WIN_REPORTER_ACCOUNT")
	if reporter == "" {
		log.Fatal("WIN_REPORTER_ACCOUNT environment variable is required")
	}
	return &Authorizer{DB: db, Ledger: ledger, Owner: owner, WinReporter: reporter}
}

// RequireOwner — satisfied only by the deploying operator's root authority.
func (a *Authorizer) RequireOwner(auth AuthContext) error {
	if auth.Caller == "" {
		return authErr(ScopeOwner, "missing caller identity")
	}
	if auth.Caller != a.Owner {
		return authErr(ScopeOwner, "caller %q is not the deployment owner", auth.Caller)
	}
	return nil
}

// RequireAdmin — the owner or a delegated operator (gateway role "admin").
func (a *Authorizer) RequireAdmin(auth AuthContext) error {
	if auth.Caller == "" {
		return authErr(ScopeAdmin, "missing caller identity")
	}
	if auth.Caller == a.Owner || auth.HasRole(RoleAdmin) {
		return nil
	}
	return authErr(ScopeAdmin, "caller %q has no admin authority", auth.Caller)
}

// RequireWinReporter — the out-of-band result oracle, and nobody else. This
// is the only scope allowed to complete a session.
func (a *Authorizer) RequireWinReporter(auth AuthContext) error {
	if auth.Caller == "" {
		return authErr(ScopeWinReporter, "missing caller identity")
	}
	if auth.Caller == a.WinReporter || auth.HasRole(RoleWinReporter) {
		return nil
	}
	return authErr(ScopeWinReporter, "caller %q is not the win reporter", auth.Caller)
}

// RequireAccountOwner checks the caller against the stored credential for
// account. On first contact the authority is fetched from the ledger and
// cached; the cache row is never deleted.
func (a *Authorizer) RequireAccountOwner(ctx context.Context, auth AuthContext, account string) error {
	if account == "" {
		return validationErr("account is required")
	}
	if auth.Caller == "" {
		return authErr(ScopeAccountOwner, "missing caller identity")
	}

	var cred models.AccountCredential
	err := a.DB.First(&cred, "account_id = ?", account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		authority, lerr := a.Ledger.GetAuthority(ctx, account)
		if lerr != nil {
			return authErr(ScopeAccountOwner, "no credential for %q and ledger lookup failed: %v", account, lerr)
		}
		cred = models.AccountCredential{AccountID: account, Authority: authority}
		if cerr := a.DB.Create(&cred).Error; cerr != nil {
			// A concurrent call may have cached it first; re-read.
			if rerr := a.DB.First(&cred, "account_id = ?", account).Error; rerr != nil {
				return cerr
			}
		}
	} else if err != nil {
		return err
	}

	if cred.Authority != auth.Caller {
		return authErr(ScopeAccountOwner, "caller does not own account %q", account)
	}
	return nil
}

// RotateCredential replaces the stored authority for account. Only a caller
// satisfying the previous authority may rotate; unrelated callers are
// rejected.
func (a *Authorizer) RotateCredential(ctx context.Context, auth AuthContext, account, newAuthority string) error {
	if newAuthority == "" {
		return validationErr("new authority is required")
	}
	if err := a.RequireAccountOwner(ctx, auth, account); err != nil {
		return err
	}
	return a.DB.Model(&models.AccountCredential{}).
		Where("account_id = ?", account).
		Update("authority", newAuthority).Error
}

// RotateCredentialHandler lets an account owner swap in a new authority key.
func (a *Authorizer) RotateCredentialHandler(c *fiber.Ctx) error {
	account := c.Params("account")
	type Req struct {
		Authority string `json:"authority"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if err := a.RotateCredential(c.Context(), AuthFromCtx(c), account, req.Authority); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"account": account, "rotated": true})
}
