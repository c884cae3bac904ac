// Package invite implements the invitation lifecycle: create, validate,
// accept, cancel and resend. The invitation id is the acceptance token.
package invite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"fenafar_admin/internal/audit"
	"fenafar_admin/internal/auth"
	"fenafar_admin/internal/identity"
	"fenafar_admin/internal/logger"
	"fenafar_admin/internal/metrics"
	"fenafar_admin/internal/models"
	"fenafar_admin/internal/validate"
)

var (
	ErrNotFound          = errors.New("convite não encontrado")
	ErrExpired           = errors.New("convite expirado")
	ErrAlreadyAccepted   = errors.New("convite já foi aceito")
	ErrPendingExists     = errors.New("já existe um convite pendente para este e-mail")
	ErrEmailInUse        = errors.New("e-mail já cadastrado")
	ErrCNPJInUse         = errors.New("CNPJ já cadastrado")
	ErrCPFInUse          = errors.New("CPF já cadastrado")
	ErrForbiddenRole     = errors.New("sem permissão para convidar este perfil")
	ErrSindicatoNotFound = errors.New("sindicato não encontrado")
	ErrInvalid           = errors.New("dados inválidos")
)

const DefaultTTL = 7 * 24 * time.Hour

// Mailer sends a typed template. *mail.Composer satisfies it.
type Mailer interface {
	Send(ctx context.Context, typ models.EmailTemplateTipo, to, toName string, vars map[string]string) error
}

type Options struct {
	TTL     time.Duration
	BaseURL string
	Now     func() time.Time
}

type Service struct {
	db       *gorm.DB
	mailer   Mailer
	identity identity.Provider
	ttl      time.Duration
	baseURL  string
	now      func() time.Time
}

func NewService(db *gorm.DB, mailer Mailer, idp identity.Provider, opts Options) *Service {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if idp == nil {
		idp = identity.Noop{}
	}
	return &Service{
		db:       db,
		mailer:   mailer,
		identity: idp,
		ttl:      opts.TTL,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		now:      func() time.Time { return opts.Now().UTC() },
	}
}

// View is an invitation with its derived status.
type View struct {
	models.Convite
	Status models.ConviteStatus `json:"status"`
}

func (s *Service) view(c models.Convite) View {
	return View{Convite: c, Status: c.StatusAt(s.now())}
}

// URL is the public acceptance page for an invitation token.
func (s *Service) URL(token string) string {
	return s.baseURL + "/convite/" + token
}

type CreateInput struct {
	Email         string
	Name          string
	Role          models.Role
	SindicatoID   string
	SindicatoName string
	SindicatoCNPJ string
}

type Delivery struct {
	EmailSent  bool   `json:"emailSent"`
	EmailError string `json:"emailError,omitempty"`
}

type CreateResult struct {
	Invite View `json:"invite"`
	Delivery
}

// Create stores a pending invitation and e-mails the link. A failed e-mail
// does not fail the call.
func (s *Service) Create(ctx context.Context, actor models.User, in CreateInput, meta audit.Meta) (*CreateResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	in.SindicatoName = strings.TrimSpace(in.SindicatoName)
	in.SindicatoCNPJ = validate.Digits(in.SindicatoCNPJ)
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return nil, fmt.Errorf("%w: email", ErrInvalid)
	}

	db := s.db.WithContext(ctx)
	conv := models.Convite{
		Email:       in.Email,
		Name:        in.Name,
		Role:        in.Role,
		CreatedByID: actor.ID,
	}

	switch {
	case actor.Role == models.RoleFenafarAdmin && in.Role == models.RoleSindicatoAdmin:
		if in.SindicatoName == "" {
			return nil, fmt.Errorf("%w: sindicatoName", ErrInvalid)
		}
		if !validate.CNPJ(in.SindicatoCNPJ) {
			return nil, fmt.Errorf("%w: sindicatoCnpj", ErrInvalid)
		}
		conv.SindicatoName = in.SindicatoName
		conv.SindicatoCNPJ = in.SindicatoCNPJ
	case actor.Role == models.RoleFenafarAdmin && in.Role == models.RoleMember,
		actor.Role == models.RoleSindicatoAdmin && in.Role == models.RoleMember:
		sid := in.SindicatoID
		if actor.Role == models.RoleSindicatoAdmin {
			if actor.SindicatoID == nil {
				return nil, ErrForbiddenRole
			}
			if sid != "" && sid != *actor.SindicatoID {
				return nil, ErrForbiddenRole
			}
			sid = *actor.SindicatoID
		}
		if sid == "" {
			return nil, fmt.Errorf("%w: sindicatoId", ErrInvalid)
		}
		var sind models.Sindicato
		if err := db.First(&sind, "id = ?", sid).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrSindicatoNotFound
			}
			return nil, err
		}
		conv.SindicatoID = &sind.ID
		conv.SindicatoName = sind.Name
		conv.SindicatoCNPJ = sind.CNPJ
	case actor.Role == models.RoleFenafarAdmin && in.Role == models.RoleFenafarAdmin:
		conv.SindicatoName = "FENAFAR"
	default:
		return nil, ErrForbiddenRole
	}

	now := s.now()
	if err := s.checkConflicts(db, conv, now); err != nil {
		return nil, err
	}
	conv.ExpiresAt = now.Add(s.ttl)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&conv).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.Entry{
			Meta:         meta,
			Actor:        &actor,
			SindicatoID:  conv.SindicatoID,
			Action:       "convite.create",
			ResourceType: "convite",
			ResourceID:   conv.ID,
			Metadata:     map[string]any{"email": conv.Email, "role": conv.Role, "sindicatoName": conv.SindicatoName},
		})
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrPendingExists
		}
		return nil, err
	}
	metrics.RecordInvite("created")
	logger.FromContext(ctx).Info("Invite created", "invite_id", conv.ID, "email", conv.Email, "role", conv.Role)

	res := &CreateResult{Invite: s.view(conv)}
	res.Delivery = s.deliver(ctx, conv, actor.Name)
	return res, nil
}

func (s *Service) checkConflicts(db *gorm.DB, conv models.Convite, now time.Time) error {
	var n int64
	if err := db.Model(&models.Convite{}).
		Where("lower(email) = ? AND accepted = ? AND expires_at >= ?", conv.Email, false, now).
		Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrPendingExists
	}
	if err := db.Model(&models.User{}).Where("lower(email) = ?", conv.Email).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrEmailInUse
	}
	if conv.Role != models.RoleSindicatoAdmin {
		return nil
	}
	if err := db.Model(&models.Sindicato{}).Where("cnpj = ?", conv.SindicatoCNPJ).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrCNPJInUse
	}
	if err := db.Model(&models.Convite{}).
		Where("sindicato_cnpj = ? AND role = ? AND accepted = ? AND expires_at >= ?",
			conv.SindicatoCNPJ, models.RoleSindicatoAdmin, false, now).
		Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrCNPJInUse
	}
	return nil
}

func (s *Service) deliver(ctx context.Context, conv models.Convite, invitedBy string) Delivery {
	typ := models.TemplateConviteMembro
	if conv.Role == models.RoleSindicatoAdmin {
		typ = models.TemplateConviteSindicato
	}
	vars := map[string]string{
		"name":          conv.Name,
		"email":         conv.Email,
		"invitedBy":     invitedBy,
		"sindicatoName": conv.SindicatoName,
		"sindicatoCnpj": conv.SindicatoCNPJ,
		"inviteUrl":     s.URL(conv.ID),
		"expiresAt":     conv.ExpiresAt.Format("02/01/2006 15:04"),
		"role":          string(conv.Role),
	}
	if s.mailer == nil {
		return Delivery{EmailError: "e-mail não configurado"}
	}
	if err := s.mailer.Send(ctx, typ, conv.Email, conv.Name, vars); err != nil {
		logger.FromContext(ctx).Warn("Invite e-mail failed", "invite_id", conv.ID, "error", err)
		return Delivery{EmailError: err.Error()}
	}
	return Delivery{EmailSent: true}
}

// Validate classifies a token: not found, expired (even if accepted),
// already accepted, or usable. It never mutates the row.
func (s *Service) Validate(ctx context.Context, token string) (*View, error) {
	conv, err := s.load(s.db.WithContext(ctx), token)
	if err != nil {
		return nil, err
	}
	if err := classify(*conv, s.now()); err != nil {
		return nil, err
	}
	v := s.view(*conv)
	return &v, nil
}

func (s *Service) load(db *gorm.DB, id string) (*models.Convite, error) {
	var conv models.Convite
	if err := db.First(&conv, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &conv, nil
}

func classify(conv models.Convite, now time.Time) error {
	switch conv.StatusAt(now) {
	case models.ConviteExpired:
		return ErrExpired
	case models.ConviteAccepted:
		return ErrAlreadyAccepted
	}
	return nil
}

type AcceptInput struct {
	Name     string
	Password string
	CPF      string
	Phone    string
	CRF      string

	// union contact data, admin invitations only
	SindicatoEmail string
	SindicatoPhone string
	Address        string
	City           string
	State          string
	ZipCode        string
}

type AcceptResult struct {
	User      models.User       `json:"user"`
	Sindicato *models.Sindicato `json:"sindicato,omitempty"`
}

// Accept turns a pending invitation into an account, and for admin
// invitations a PENDING union, in a single transaction.
func (s *Service) Accept(ctx context.Context, token string, in AcceptInput, meta audit.Meta) (*AcceptResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.CPF = validate.Digits(in.CPF)
	if in.CPF != "" && !validate.CPF(in.CPF) {
		return nil, fmt.Errorf("%w: cpf", ErrInvalid)
	}
	if in.State != "" && !validate.UF(in.State) {
		return nil, fmt.Errorf("%w: state", ErrInvalid)
	}

	db := s.db.WithContext(ctx)
	conv, err := s.load(db, token)
	if err != nil {
		return nil, err
	}
	if err := classify(*conv, s.now()); err != nil {
		return nil, err
	}
	if in.Name == "" {
		in.Name = conv.Name
	}
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name", ErrInvalid)
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	var (
		res      AcceptResult
		mirrored string
	)
	err = db.Transaction(func(tx *gorm.DB) error {
		// re-read inside the transaction, a concurrent accept may have won
		conv, err := s.load(tx, token)
		if err != nil {
			return err
		}
		now := s.now()
		if err := classify(*conv, now); err != nil {
			return err
		}

		var n int64
		if err := tx.Model(&models.User{}).Where("lower(email) = ?", conv.Email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrEmailInUse
		}
		if in.CPF != "" {
			if err := tx.Model(&models.User{}).Where("cpf = ?", in.CPF).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return ErrCPFInUse
			}
		}

		sindicatoID := conv.SindicatoID
		if conv.Role == models.RoleSindicatoAdmin {
			if err := tx.Model(&models.Sindicato{}).Where("cnpj = ?", conv.SindicatoCNPJ).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return ErrCNPJInUse
			}
			slugValue, err := UniqueSlug(tx, conv.SindicatoName)
			if err != nil {
				return err
			}
			sindEmail := strings.ToLower(strings.TrimSpace(in.SindicatoEmail))
			if sindEmail == "" {
				sindEmail = conv.Email
			}
			sind := models.Sindicato{
				Name:    conv.SindicatoName,
				CNPJ:    conv.SindicatoCNPJ,
				Slug:    slugValue,
				Email:   sindEmail,
				Phone:   strings.TrimSpace(in.SindicatoPhone),
				Address: strings.TrimSpace(in.Address),
				City:    strings.TrimSpace(in.City),
				State:   strings.ToUpper(strings.TrimSpace(in.State)),
				ZipCode: validate.Digits(in.ZipCode),
				Status:  models.SindicatoPending,
				Active:  true,
			}
			if err := tx.Create(&sind).Error; err != nil {
				return mapDuplicate(err)
			}
			sindicatoID = &sind.ID
			res.Sindicato = &sind
		}

		user := models.User{
			Email:          conv.Email,
			Name:           in.Name,
			Phone:          strings.TrimSpace(in.Phone),
			CRF:            strings.TrimSpace(in.CRF),
			Role:           conv.Role,
			Active:         true,
			EmailConfirmed: true,
			SindicatoID:    sindicatoID,
			AuthProvider:   models.AuthProviderLocal,
			PasswordHash:   hash,
		}
		if in.CPF != "" {
			cpf := in.CPF
			user.CPF = &cpf
		}
		if err := tx.Create(&user).Error; err != nil {
			return mapDuplicate(err)
		}
		if res.Sindicato != nil {
			if err := tx.Model(res.Sindicato).Update("admin_id", user.ID).Error; err != nil {
				return err
			}
			res.Sindicato.AdminID = &user.ID
		}

		mirrored = s.mirror(ctx, tx, &user, in.Password)

		upd := tx.Model(&models.Convite{}).
			Where("id = ? AND accepted = ?", conv.ID, false).
			Updates(map[string]any{"accepted": true, "accepted_at": now})
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return ErrAlreadyAccepted
		}

		res.User = user
		return audit.Record(tx, audit.Entry{
			Meta:         meta,
			Actor:        &user,
			SindicatoID:  sindicatoID,
			Action:       "convite.accept",
			ResourceType: "convite",
			ResourceID:   conv.ID,
			Metadata:     map[string]any{"email": conv.Email, "role": conv.Role},
		})
	})
	if err != nil {
		if mirrored != "" {
			s.unmirror(ctx, mirrored)
		}
		return nil, err
	}
	metrics.RecordInvite("accepted")
	logger.FromContext(ctx).Info("Invite accepted", "invite_id", conv.ID, "user_id", res.User.ID)

	s.welcome(ctx, res)
	return &res, nil
}

// mirror creates the account at the identity provider and returns its id.
// Failures are logged and the local account stands on its own.
func (s *Service) mirror(ctx context.Context, tx *gorm.DB, user *models.User, password string) string {
	extID, err := s.identity.CreateUser(ctx, identity.NewUser{
		Email:    user.Email,
		Password: password,
		Name:     user.Name,
		Role:     string(user.Role),
	})
	switch {
	case errors.Is(err, identity.ErrDisabled):
		return ""
	case err != nil:
		logger.FromContext(ctx).Warn("Identity provider mirror failed", "user_id", user.ID, "error", err)
		return ""
	}
	if err := tx.Model(user).Update("external_id", extID).Error; err != nil {
		logger.FromContext(ctx).Warn("Failed to store external id", "user_id", user.ID, "error", err)
		s.unmirror(ctx, extID)
		return ""
	}
	user.ExternalID = &extID
	return extID
}

// unmirror removes a provider account whose local row never committed.
func (s *Service) unmirror(ctx context.Context, extID string) {
	if err := s.identity.DeleteUser(ctx, extID); err != nil && !errors.Is(err, identity.ErrDisabled) {
		logger.FromContext(ctx).Warn("Failed to remove orphaned provider account", "external_id", extID, "error", err)
	}
}

func (s *Service) welcome(ctx context.Context, res AcceptResult) {
	if s.mailer == nil {
		return
	}
	vars := map[string]string{
		"name":     res.User.Name,
		"email":    res.User.Email,
		"role":     string(res.User.Role),
		"loginUrl": s.baseURL + "/login",
	}
	if res.Sindicato != nil {
		vars["sindicatoName"] = res.Sindicato.Name
	}
	if err := s.mailer.Send(ctx, models.TemplateBoasVindas, res.User.Email, res.User.Name, vars); err != nil {
		logger.FromContext(ctx).Warn("Welcome e-mail failed", "user_id", res.User.ID, "error", err)
	}
}

func mapDuplicate(err error) error {
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "cnpj"):
		return ErrCNPJInUse
	case strings.Contains(msg, "cpf"):
		return ErrCPFInUse
	default:
		return ErrEmailInUse
	}
}

// UniqueSlug derives a slug from name, suffixing -2, -3... until unused.
func UniqueSlug(db *gorm.DB, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "sindicato"
	}
	candidate := base
	for i := 2; ; i++ {
		var n int64
		if err := db.Model(&models.Sindicato{}).Where("slug = ?", candidate).Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// scope limits an actor to invitations it may see. ok is false when the
// actor may see none.
func scope(actor models.User) (sindicatoID string, all bool, ok bool) {
	switch actor.Role {
	case models.RoleFenafarAdmin:
		return "", true, true
	case models.RoleSindicatoAdmin:
		if actor.SindicatoID == nil {
			return "", false, false
		}
		return *actor.SindicatoID, false, true
	}
	return "", false, false
}

func (s *Service) owned(ctx context.Context, actor models.User, id string) (*models.Convite, error) {
	sid, all, ok := scope(actor)
	if !ok {
		return nil, ErrForbiddenRole
	}
	conv, err := s.load(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if !all && (conv.SindicatoID == nil || *conv.SindicatoID != sid) {
		return nil, ErrNotFound
	}
	return conv, nil
}

// Delete cancels an invitation that has not been accepted.
func (s *Service) Delete(ctx context.Context, actor models.User, id string, meta audit.Meta) error {
	conv, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}
	if conv.Accepted {
		return ErrAlreadyAccepted
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND accepted = ?", conv.ID, false).Delete(&models.Convite{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyAccepted
		}
		return audit.Record(tx, audit.Entry{
			Meta:         meta,
			Actor:        &actor,
			SindicatoID:  conv.SindicatoID,
			Action:       "convite.delete",
			ResourceType: "convite",
			ResourceID:   conv.ID,
			Metadata:     map[string]any{"email": conv.Email},
		})
	})
	if err != nil {
		return err
	}
	metrics.RecordInvite("deleted")
	return nil
}

// Resend e-mails a pending invitation again without touching the row.
func (s *Service) Resend(ctx context.Context, actor models.User, id string) (*CreateResult, error) {
	conv, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := classify(*conv, s.now()); err != nil {
		return nil, err
	}
	metrics.RecordInvite("resent")
	return &CreateResult{Invite: s.view(*conv), Delivery: s.deliver(ctx, *conv, actor.Name)}, nil
}

type ListFilter struct {
	Status      models.ConviteStatus
	SindicatoID string
	Q           string
	Page        int
	PageSize    int
}

// List pages through invitations visible to actor, newest first.
func (s *Service) List(ctx context.Context, actor models.User, f ListFilter) ([]View, int64, error) {
	sid, all, ok := scope(actor)
	if !ok {
		return nil, 0, ErrForbiddenRole
	}
	q := s.db.WithContext(ctx).Model(&models.Convite{})
	switch {
	case !all:
		q = q.Where("sindicato_id = ?", sid)
	case f.SindicatoID != "":
		q = q.Where("sindicato_id = ?", f.SindicatoID)
	}
	now := s.now()
	switch f.Status {
	case models.ConvitePending:
		q = q.Where("accepted = ? AND expires_at >= ?", false, now)
	case models.ConviteAccepted:
		q = q.Where("accepted = ? AND expires_at >= ?", true, now)
	case models.ConviteExpired:
		q = q.Where("expires_at < ?", now)
	}
	if term := strings.TrimSpace(f.Q); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("(lower(email) LIKE ? OR lower(name) LIKE ? OR lower(sindicato_name) LIKE ?)", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 20
	}
	var rows []models.Convite
	if err := q.Preload("CreatedBy").Order("created_at DESC").
		Offset((f.Page - 1) * f.PageSize).Limit(f.PageSize).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]View, 0, len(rows))
	for _, r := range rows {
		out = append(out, s.view(r))
	}
	return out, total, nil
}
