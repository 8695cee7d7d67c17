package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"seifenshop/internal/domain/model"
	repo "seifenshop/internal/repository"

	"github.com/rs/zerolog/log"
)

// usecaseがValidatorInterfaceに依存する約束
type CustomerValidator interface {
	ValidateRegister(ctx context.Context, in RegisterInput) error
	ValidateLogin(ctx context.Context, email string, password string) error
	ValidateProfile(ctx context.Context, in ProfileInput) error
}

type CustomerDTO struct {
	ID           int64                          `json:"id"`
	Email        string                         `json:"email"`
	FirstName    string                         `json:"first_name"`
	LastName     string                         `json:"last_name"`
	Phone        string                         `json:"phone"`
	Address      model.Address                  `json:"address"`
	Role         string                         `json:"role"`
	TokenVersion int                            `json:"token_version"`
	IsActive     bool                           `json:"is_active"`
	Preferences  model.CommunicationPreferences `json:"preferences"`
	LastLoginAt  *time.Time                     `json:"last_login_at,omitempty"`
	CreatedAt    time.Time                      `json:"created_at"`
}

type JwtAccessTokenDTO struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenVersion int    `json:"token_version"`
}

type LoginOutput struct {
	Customer CustomerDTO       `json:"customer"`
	Token    JwtAccessTokenDTO `json:"token"`
}

type CustomerListOutput struct {
	Items []CustomerDTO `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

type RegisterInput struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	Phone      string
	Address    model.Address
	Newsletter bool
}

// 自分で変更できる項目（nilは変更なし）
type ProfileInput struct {
	FirstName   *string
	LastName    *string
	Phone       *string
	Address     *model.Address
	Preferences *model.CommunicationPreferences
	//パスワード変更は現在のパスワードが必要
	CurrentPassword string
	NewPassword     string
}

// 管理者が変更できる項目
type AdminCustomerInput struct {
	Role      *string
	IsActive  *bool
	FirstName *string
	LastName  *string
	Phone     *string
}

type CustomerUsecase struct {
	tx        repo.TransactionManager
	customers repo.CustomerRepository
	validator CustomerValidator
	hasher    PasswordHasher
	tokens    AccessTokenIssuer
	clock     Clock
}

func NewCustomerUsecase(
	tx repo.TransactionManager,
	customers repo.CustomerRepository,
	validator CustomerValidator,
	hasher PasswordHasher,
	tokens AccessTokenIssuer,
	clock Clock,
) *CustomerUsecase {
	return &CustomerUsecase{
		tx:        tx,
		customers: customers,
		validator: validator,
		hasher:    hasher,
		tokens:    tokens,
		clock:     clock,
	}
}

// model.CustomerをAPI返却用DTOに変換。
func toCustomerDTO(c *model.Customer) CustomerDTO {
	return CustomerDTO{
		ID:           c.ID,
		Email:        c.Email,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		Phone:        c.Phone,
		Address:      c.Address,
		Role:         string(c.Role),
		TokenVersion: c.TokenVersion,
		IsActive:     c.IsActive,
		Preferences:  c.Preferences,
		LastLoginAt:  c.LastLoginAt,
		CreatedAt:    c.CreatedAt,
	}
}

func (u *CustomerUsecase) Register(ctx context.Context, in RegisterInput) (CustomerDTO, error) {
	//入力検証（validatorに寄せる）
	if err := u.validator.ValidateRegister(ctx, in); err != nil {
		return CustomerDTO{}, err
	}

	//パスワードは必ずハッシュ化して保存（平文保存しない）
	pwHash, err := u.hasher.Hash(in.Password)
	if err != nil {
		return CustomerDTO{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	now := u.clock.Now()
	c := &model.Customer{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: pwHash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Phone:        strings.TrimSpace(in.Phone),
		Address:      in.Address,
		Role:         model.RoleCustomer,
		IsActive:     true,
		Preferences: model.CommunicationPreferences{
			Newsletter:   in.Newsletter,
			OrderUpdates: true,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	//email重複はrepoでErrConflictになる
	if err := u.customers.Create(ctx, c); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return CustomerDTO{}, NewHTTPError(http.StatusConflict, "email already used")
		}
		return CustomerDTO{}, dbError(err, "")
	}

	return toCustomerDTO(c), nil
}

func (u *CustomerUsecase) Login(ctx context.Context, email string, password string) (LoginOutput, error) {
	if err := u.validator.ValidateLogin(ctx, email, password); err != nil {
		return LoginOutput{}, err
	}

	c, err := u.customers.FindByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return LoginOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if err != nil {
		return LoginOutput{}, dbError(err, "")
	}

	//パスワード照合（bcrypt）
	if !u.hasher.Verify(c.PasswordHash, password) {
		return LoginOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	//停止ユーザーはログイン不可
	if !c.IsActive {
		return LoginOutput{}, NewHTTPError(http.StatusForbidden, "account disabled")
	}

	now := u.clock.Now()
	if err := u.customers.TouchLastLogin(ctx, c.ID, now); err != nil {
		return LoginOutput{}, dbError(err, "")
	}
	c.LastLoginAt = &now

	//access token発行
	token, expiresIn, err := u.tokens.Issue(c.ID, c.Role, c.TokenVersion, now)
	if err != nil {
		return LoginOutput{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return LoginOutput{
		Customer: toCustomerDTO(c),
		Token: JwtAccessTokenDTO{
			AccessToken:  token,
			ExpiresIn:    expiresIn,
			TokenVersion: c.TokenVersion,
		},
	}, nil
}

func (u *CustomerUsecase) Me(ctx context.Context, customerID int64) (CustomerDTO, error) {
	if customerID <= 0 {
		return CustomerDTO{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	c, err := u.customers.FindByID(ctx, customerID)
	if errors.Is(err, repo.ErrNotFound) {
		return CustomerDTO{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err != nil {
		return CustomerDTO{}, dbError(err, "")
	}
	if !c.IsActive {
		return CustomerDTO{}, NewHTTPError(http.StatusForbidden, "account disabled")
	}

	return toCustomerDTO(c), nil
}

// パスワードを変えたら、今までのトークンは使えなくなる
func (u *CustomerUsecase) UpdateProfile(ctx context.Context, customerID int64, in ProfileInput) (CustomerDTO, error) {
	if customerID <= 0 {
		return CustomerDTO{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := u.validator.ValidateProfile(ctx, in); err != nil {
		return CustomerDTO{}, err
	}

	var out CustomerDTO
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := r.Customers().FindByID(ctx, customerID)
		if err != nil {
			return dbError(err, "customer not found")
		}
		if !c.IsActive {
			return NewHTTPError(http.StatusForbidden, "account disabled")
		}

		if in.FirstName != nil {
			c.FirstName = strings.TrimSpace(*in.FirstName)
		}
		if in.LastName != nil {
			c.LastName = strings.TrimSpace(*in.LastName)
		}
		if in.Phone != nil {
			c.Phone = strings.TrimSpace(*in.Phone)
		}
		if in.Address != nil {
			c.Address = *in.Address
		}
		if in.Preferences != nil {
			c.Preferences = *in.Preferences
		}

		passwordChanged := false
		if in.NewPassword != "" {
			if !u.hasher.Verify(c.PasswordHash, in.CurrentPassword) {
				return NewHTTPError(http.StatusUnauthorized, "current password wrong")
			}
			h, err := u.hasher.Hash(in.NewPassword)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "internal error")
			}
			c.PasswordHash = h
			passwordChanged = true
		}

		c.UpdatedAt = u.clock.Now()
		if err := r.Customers().Update(ctx, c); err != nil {
			return dbError(err, "customer not found")
		}
		if passwordChanged {
			if err := r.Customers().IncrementTokenVersion(ctx, customerID); err != nil {
				return dbError(err, "customer not found")
			}
			c.TokenVersion++
		}

		out = toCustomerDTO(c)
		return nil
	})
	if err != nil {
		return CustomerDTO{}, err
	}
	return out, nil
}

func (u *CustomerUsecase) AdminList(ctx context.Context, f repo.CustomerListFilter) (CustomerListOutput, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
	if len(f.Q) > 100 {
		return CustomerListOutput{}, NewHTTPError(http.StatusBadRequest, "q too long")
	}

	list, total, err := u.customers.List(ctx, f)
	if err != nil {
		return CustomerListOutput{}, dbError(err, "")
	}

	items := make([]CustomerDTO, 0, len(list))
	for i := range list {
		items = append(items, toCustomerDTO(&list[i]))
	}
	return CustomerListOutput{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// ロール変更・停止/再開はトークンを失効させる
func (u *CustomerUsecase) AdminUpdate(ctx context.Context, actorID int64, customerID int64, in AdminCustomerInput) (CustomerDTO, error) {
	if customerID <= 0 {
		return CustomerDTO{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var role model.Role
	if in.Role != nil {
		r, err := model.ParseRole(*in.Role)
		if err != nil {
			return CustomerDTO{}, NewHTTPError(http.StatusBadRequest, "invalid role")
		}
		role = r
	}
	if actorID == customerID {
		if in.Role != nil && role != model.RoleAdmin {
			return CustomerDTO{}, NewHTTPError(http.StatusBadRequest, "cannot change own role")
		}
		if in.IsActive != nil && !*in.IsActive {
			return CustomerDTO{}, NewHTTPError(http.StatusBadRequest, "cannot disable own account")
		}
	}

	var out CustomerDTO
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := r.Customers().FindByID(ctx, customerID)
		if err != nil {
			return dbError(err, "customer not found")
		}
		before := toCustomerDTO(c)
		now := u.clock.Now()

		revoke := false
		if in.Role != nil && c.Role != role {
			c.Role = role
			revoke = true
		}
		if in.IsActive != nil && c.IsActive != *in.IsActive {
			c.IsActive = *in.IsActive
			if c.IsActive {
				c.DisabledAt = nil
			} else {
				c.DisabledAt = &now
			}
			revoke = true
		}
		if in.FirstName != nil {
			c.FirstName = strings.TrimSpace(*in.FirstName)
		}
		if in.LastName != nil {
			c.LastName = strings.TrimSpace(*in.LastName)
		}
		if in.Phone != nil {
			c.Phone = strings.TrimSpace(*in.Phone)
		}

		c.UpdatedAt = now
		if err := r.Customers().Update(ctx, c); err != nil {
			return dbError(err, "customer not found")
		}
		if revoke {
			if err := r.Customers().IncrementTokenVersion(ctx, customerID); err != nil {
				return dbError(err, "customer not found")
			}
			c.TokenVersion++
		}

		out = toCustomerDTO(c)
		return writeAudit(ctx, r, actorID, model.AuditActionUpdateCustomer, model.AuditResourceCustomer, customerID, before, out, now)
	})
	if err != nil {
		return CustomerDTO{}, err
	}
	return out, nil
}

// 削除はしない（保存義務のため停止だけ）
func (u *CustomerUsecase) AdminDisable(ctx context.Context, actorID int64, customerID int64) (CustomerDTO, error) {
	if customerID <= 0 {
		return CustomerDTO{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if actorID == customerID {
		return CustomerDTO{}, NewHTTPError(http.StatusBadRequest, "cannot disable own account")
	}

	var out CustomerDTO
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := r.Customers().FindByID(ctx, customerID)
		if err != nil {
			return dbError(err, "customer not found")
		}
		if !c.IsActive {
			out = toCustomerDTO(c)
			return nil
		}
		before := toCustomerDTO(c)

		now := u.clock.Now()
		c.IsActive = false
		c.DisabledAt = &now
		c.UpdatedAt = now
		if err := r.Customers().Update(ctx, c); err != nil {
			return dbError(err, "customer not found")
		}
		if err := r.Customers().IncrementTokenVersion(ctx, customerID); err != nil {
			return dbError(err, "customer not found")
		}
		c.TokenVersion++

		out = toCustomerDTO(c)
		return writeAudit(ctx, r, actorID, model.AuditActionDisableCustomer, model.AuditResourceCustomer, customerID, before, out, now)
	})
	if err != nil {
		return CustomerDTO{}, err
	}
	return out, nil
}

// 起動時の管理者アカウント作成。既にあればロールだけadminにそろえる
func (u *CustomerUsecase) SeedAdmin(ctx context.Context, email string, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}

	existing, err := u.customers.FindByEmail(ctx, email)
	if err == nil {
		if existing.Role == model.RoleAdmin {
			return nil
		}
		existing.Role = model.RoleAdmin
		existing.UpdatedAt = u.clock.Now()
		if err := u.customers.Update(ctx, existing); err != nil {
			return err
		}
		log.Info().Str("email", email).Msg("existing account promoted to admin")
		return u.customers.IncrementTokenVersion(ctx, existing.ID)
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return err
	}

	h, err := u.hasher.Hash(password)
	if err != nil {
		return err
	}
	now := u.clock.Now()
	if err := u.customers.Create(ctx, &model.Customer{
		Email:        email,
		PasswordHash: h,
		FirstName:    "Admin",
		Role:         model.RoleAdmin,
		IsActive:     true,
		Preferences:  model.CommunicationPreferences{OrderUpdates: true},
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		return err
	}
	log.Info().Str("email", email).Msg("admin account created")
	return nil
}
