package usecase

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"wallet-engine/src/internal/entity"
	"wallet-engine/src/internal/model"
	"wallet-engine/src/internal/repository"
	"wallet-engine/src/pkg/eventbus"
	"wallet-engine/src/pkg/log"
	"wallet-engine/src/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"golang.org/x/crypto/blake2b"
)

const (
	MethodIDCash           = "cash"
	MethodIDWallet         = "wallet"
	MethodIDCard           = "card"
	mobileMoneyIDPrefix    = "mobile_money_"
	defaultFingerprintSalt = "wallet-engine"
)

type PaymentMethodUseCase struct {
	Log      log.Log
	Validate *validator.Validate
	Config   *viper.Viper
	Methods  *repository.PaymentMethodRepository
	Ledger   *repository.LedgerRepository
	Bus      *eventbus.Bus
	now      func() time.Time
}

func NewPaymentMethodUseCase(
	logger log.Log,
	validate *validator.Validate,
	cfg *viper.Viper,
	methods *repository.PaymentMethodRepository,
	ledger *repository.LedgerRepository,
	bus *eventbus.Bus,
) *PaymentMethodUseCase {
	return &PaymentMethodUseCase{
		Log:      logger,
		Validate: validate,
		Config:   cfg,
		Methods:  methods,
		Ledger:   ledger,
		Bus:      bus,
		now:      time.Now,
	}
}

func (c *PaymentMethodUseCase) providers() []string {
	var out []string
	for _, p := range c.Config.GetStringSlice("settlement.mobile_money.providers") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// builtIns is the catalog every user has. The wallet entry carries the live
// balance.
func (c *PaymentMethodUseCase) builtIns() []entity.PaymentMethod {
	state := c.Ledger.Snapshot()
	balance := state.Balance

	methods := []entity.PaymentMethod{
		{
			ID:         MethodIDCash,
			Type:       entity.MethodCash,
			Name:       "Cash",
			Enabled:    true,
			IsDefault:  true,
			IsVerified: true,
			BuiltIn:    true,
		},
		{
			ID:          MethodIDWallet,
			Type:        entity.MethodWallet,
			Name:        "Wallet",
			Description: fmt.Sprintf("Balance: %s %s", state.Currency, balance.StringFixed(2)),
			Enabled:     true,
			IsVerified:  true,
			BuiltIn:     true,
			Balance:     &balance,
		},
	}
	for _, p := range c.providers() {
		methods = append(methods, entity.PaymentMethod{
			ID:         mobileMoneyIDPrefix + p,
			Type:       entity.MethodMobileMoney,
			Name:       fmt.Sprintf("Mobile money (%s)", p),
			Enabled:    true,
			IsVerified: true,
			BuiltIn:    true,
			Provider:   p,
		})
	}
	return append(methods, entity.PaymentMethod{
		ID:         MethodIDCard,
		Type:       entity.MethodCard,
		Name:       "Card",
		Enabled:    true,
		IsVerified: true,
		BuiltIn:    true,
	})
}

// ListMethods returns the built-in catalog followed by user-added methods.
// Cash stays the default unless the user picked another default.
func (c *PaymentMethodUseCase) ListMethods(ctx context.Context) []entity.PaymentMethod {
	builtIns := c.builtIns()
	added := c.Methods.List()

	userDefault := false
	for _, m := range added {
		if m.IsDefault {
			userDefault = true
			break
		}
	}
	if userDefault {
		for i := range builtIns {
			builtIns[i].IsDefault = false
		}
	}
	return append(builtIns, added...)
}

func (c *PaymentMethodUseCase) AddMethod(ctx context.Context, request *model.AddPaymentMethodRequest) (entity.PaymentMethod, error) {
	if err := c.Validate.Struct(request); err != nil {
		c.Log.Error("payment-method-usecase", fmt.Sprintf("validation error: %v", err), "AddMethod", "")
		return entity.PaymentMethod{}, model.WrapError(model.KindInvalidRequest, err, "validation error")
	}

	method := entity.PaymentMethod{
		ID:        uuid.NewString(),
		Type:      entity.PaymentMethodType(request.Type),
		Name:      request.Name,
		Enabled:   true,
		IsDefault: request.IsDefault,
		CreatedAt: c.now().UTC(),
	}

	switch method.Type {
	case entity.MethodMobileMoney:
		if request.Provider == "" || request.PhoneNumber == "" {
			return entity.PaymentMethod{}, model.NewError(model.KindInvalidRequest, "provider and phone number are required for mobile money")
		}
		method.Provider = request.Provider
		method.PhoneNumber = request.PhoneNumber
	case entity.MethodCard:
		number := digitsOnly(request.CardNumber)
		if len(number) < 12 {
			return entity.PaymentMethod{}, model.NewError(model.KindInvalidRequest, "card number is required")
		}
		fingerprint, err := c.fingerprint(number)
		if err != nil {
			return entity.PaymentMethod{}, err
		}
		for _, m := range c.Methods.List() {
			if m.Fingerprint == fingerprint {
				return entity.PaymentMethod{}, model.NewError(model.KindDuplicateRequest, "card already registered as %s", m.ID)
			}
		}
		method.Provider = request.Provider
		method.Last4 = number[len(number)-4:]
		method.Fingerprint = fingerprint
	default:
		return entity.PaymentMethod{}, model.NewError(model.KindUnsupportedMethod, "cannot add payment method of type %s", request.Type)
	}

	if method.IsDefault {
		for _, m := range c.Methods.List() {
			if !m.IsDefault {
				continue
			}
			if _, err := c.Methods.Update(ctx, m.ID, func(pm *entity.PaymentMethod) { pm.IsDefault = false }); err != nil {
				return entity.PaymentMethod{}, err
			}
		}
	}

	if err := c.Methods.Add(ctx, method); err != nil {
		c.Log.Error("payment-method-usecase", fmt.Sprintf("failed to add payment method: %v", err), "AddMethod", method.ID)
		return entity.PaymentMethod{}, err
	}
	c.Log.Info("payment-method-usecase", "payment method added", "AddMethod", utils.ConvertString(method))
	c.Bus.Emit(model.PaymentMethodAdded{Method: method})
	return method, nil
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// fingerprint identifies a card without storing its number.
func (c *PaymentMethodUseCase) fingerprint(cardNumber string) (string, error) {
	key := c.Config.GetString("card.fingerprint_key")
	if key == "" {
		key = defaultFingerprintSalt
	}
	h, err := blake2b.New256([]byte(key))
	if err != nil {
		return "", fmt.Errorf("card fingerprint: %w", err)
	}
	h.Write([]byte(cardNumber))
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (c *PaymentMethodUseCase) RemoveMethod(ctx context.Context, id string) error {
	if c.isBuiltIn(id) {
		return model.NewError(model.KindInvalidRequest, "built-in payment method %s cannot be removed", id)
	}
	if _, err := c.Methods.Remove(ctx, id); err != nil {
		c.Log.Error("payment-method-usecase", fmt.Sprintf("failed to remove payment method: %v", err), "RemoveMethod", id)
		return err
	}
	c.Bus.Emit(model.PaymentMethodRemoved{MethodID: id})
	return nil
}

// UpdateMethod applies an enable toggle and/or verification in one call.
func (c *PaymentMethodUseCase) UpdateMethod(ctx context.Context, id string, request *model.UpdatePaymentMethodRequest) (entity.PaymentMethod, error) {
	if request.Enabled == nil && !request.Verified {
		return entity.PaymentMethod{}, model.NewError(model.KindInvalidRequest, "nothing to update")
	}
	return c.update(ctx, id, func(pm *entity.PaymentMethod) {
		if request.Enabled != nil {
			pm.Enabled = *request.Enabled
		}
		if request.Verified {
			pm.IsVerified = true
		}
	})
}

func (c *PaymentMethodUseCase) update(ctx context.Context, id string, fn func(*entity.PaymentMethod)) (entity.PaymentMethod, error) {
	if c.isBuiltIn(id) {
		return entity.PaymentMethod{}, model.NewError(model.KindInvalidRequest, "built-in payment method %s cannot be modified", id)
	}
	method, err := c.Methods.Update(ctx, id, fn)
	if err != nil {
		return entity.PaymentMethod{}, err
	}
	c.Bus.Emit(model.PaymentMethodUpdated{Method: method})
	return method, nil
}

func (c *PaymentMethodUseCase) isBuiltIn(id string) bool {
	for _, m := range c.builtIns() {
		if m.ID == id {
			return true
		}
	}
	return false
}

// Resolve maps the method named by a payment request to a usable method. ref
// is either a method id or a method type; for a type the first enabled
// built-in of that type wins, preferring provider for mobile money.
func (c *PaymentMethodUseCase) Resolve(ref, provider string) (entity.PaymentMethod, error) {
	all := c.ListMethods(context.Background())

	for _, m := range all {
		if m.ID != ref {
			continue
		}
		if !m.Enabled {
			return entity.PaymentMethod{}, model.NewError(model.KindUnsupportedMethod, "payment method %s is disabled", ref)
		}
		return m, nil
	}

	t := entity.PaymentMethodType(ref)
	if !t.Valid() {
		return entity.PaymentMethod{}, model.NewError(model.KindUnsupportedMethod, "unsupported payment method %q", ref)
	}
	var candidate *entity.PaymentMethod
	for i := range all {
		m := all[i]
		if m.Type != t || !m.Enabled {
			continue
		}
		if provider == "" || m.Provider == provider {
			return m, nil
		}
		if candidate == nil {
			candidate = &all[i]
		}
	}
	if candidate != nil && t != entity.MethodMobileMoney {
		return *candidate, nil
	}
	if t == entity.MethodMobileMoney && provider != "" {
		return entity.PaymentMethod{}, model.NewError(model.KindUnsupportedMethod, "mobile money provider %q is not available", provider)
	}
	return entity.PaymentMethod{}, model.NewError(model.KindUnsupportedMethod, "payment method %s is not available", ref)
}
