package httpserver

import (
	"html/template"
	"net/http"
	"path/filepath"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"fenafar_admin/internal/auth"
	"fenafar_admin/internal/config"
	"fenafar_admin/internal/http/handlers"
	"fenafar_admin/internal/identity"
	"fenafar_admin/internal/invite"
	"fenafar_admin/internal/logger"
	"fenafar_admin/internal/metrics"
	"fenafar_admin/internal/rbac"
	"fenafar_admin/internal/storage"
)

// Mailer is what the router needs from the e-mail composer.
type Mailer interface {
	invite.Mailer
	handlers.TemplateDeliverer
}

type Options struct {
	DB       *gorm.DB
	Config   config.Config
	Invites  *invite.Service
	Identity identity.Provider
	Mailer   Mailer
	Store    storage.Store
	Logger   logger.Logger
}

func NewRouter(opts Options) *gin.Engine {
	db, cfg := opts.DB, opts.Config
	if opts.Logger == nil {
		opts.Logger = logger.GetDefault()
	}
	if opts.Identity == nil {
		opts.Identity = identity.Noop{}
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(opts.Logger), metrics.Middleware())
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	loadViews(r, cfg, opts.Logger)

	authMW := auth.JWT(db, auth.Options{Secret: cfg.JWTSecret, ExternalSecret: cfg.Supabase.JWTSecret})
	chk := rbac.Checker{}
	loginLimit := newIPLimiter(10, 5)
	publicLimit := newIPLimiter(30, 10)

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/healthz", handlers.Healthz(db))
	r.GET("/metrics", metrics.Handler())

	// Pages
	r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusSeeOther, "/dashboard") })
	r.GET("/login", handlers.Page("login.tmpl", "Entrar"))
	r.GET("/logout", handlers.LogoutHandler())
	r.GET("/convite/:token", func(c *gin.Context) {
		c.HTML(http.StatusOK, "convite.tmpl", gin.H{"title": "Aceitar convite", "Token": c.Param("token")})
	})
	pages := r.Group("/", authMW)
	{
		pages.GET("/dashboard", handlers.Page("dashboard.tmpl", "Painel"))
		pages.GET("/profile", handlers.ProfileHandler(db))
		pages.GET("/sindicatos", requirePerm(chk, rbac.SindicatosRead), handlers.Page("sindicatos.tmpl", "Sindicatos"))
		pages.GET("/membros", requirePerm(chk, rbac.MembersRead), handlers.Page("membros.tmpl", "Membros"))
		pages.GET("/documentos", requirePerm(chk, rbac.DocumentsRead), handlers.Page("documentos.tmpl", "Documentos"))
		pages.GET("/convites", requirePerm(chk, rbac.InvitesRead), handlers.Page("convites.tmpl", "Convites"))
		pages.GET("/email-templates", requirePerm(chk, rbac.TemplatesRead), handlers.Page("email_templates.tmpl", "Templates de e-mail"))
		pages.GET("/audit", requirePerm(chk, rbac.AuditRead), handlers.Page("audit.tmpl", "Auditoria"))
	}

	// Public API
	r.POST("/api/v1/auth/login", loginLimit.Middleware(), handlers.LoginHandler(db, cfg.JWTSecret))
	public := r.Group("/api/v1/public", publicLimit.Middleware())
	{
		public.GET("/invites/:token", handlers.GetPublicInvite(opts.Invites))
		public.POST("/invites/:token/accept", handlers.AcceptInvite(opts.Invites))
	}

	api := r.Group("/api/v1", authMW)
	{
		api.GET("/me", handlers.MeHandler(db))
		api.PUT("/me", handlers.UpdateMe(db))
		api.PUT("/me/password", handlers.ChangeMyPassword(db))
		api.GET("/stats", handlers.Stats(db))
		api.GET("/roles", handlers.ListRoles())

		// Sindicatos
		api.GET("/sindicatos", requirePerm(chk, rbac.SindicatosRead), handlers.ListSindicatos(db))
		api.GET("/sindicatos/:id", requirePerm(chk, rbac.SindicatosRead), handlers.GetSindicato(db))
		api.POST("/sindicatos", requirePerm(chk, rbac.SindicatosReview), handlers.CreateSindicato(db))
		api.PUT("/sindicatos/:id", requirePerm(chk, rbac.SindicatosWrite), handlers.UpdateSindicato(db))
		api.DELETE("/sindicatos/:id", requirePerm(chk, rbac.SindicatosReview), handlers.DeleteSindicato(db))
		api.POST("/sindicatos/:id/approve", requirePerm(chk, rbac.SindicatosReview), handlers.ApproveSindicato(db, opts.Mailer, cfg.BaseURL))
		api.POST("/sindicatos/:id/reject", requirePerm(chk, rbac.SindicatosReview), handlers.RejectSindicato(db, opts.Mailer, cfg.BaseURL))
		api.POST("/sindicatos/:id/activate", requirePerm(chk, rbac.SindicatosReview), handlers.SetSindicatoActive(db, true))
		api.POST("/sindicatos/:id/deactivate", requirePerm(chk, rbac.SindicatosReview), handlers.SetSindicatoActive(db, false))

		// Members
		api.GET("/members", requirePerm(chk, rbac.MembersRead), handlers.ListMembers(db))
		api.GET("/members/:id", requirePerm(chk, rbac.MembersRead), handlers.GetMember(db))
		api.POST("/members", requirePerm(chk, rbac.MembersWrite), handlers.CreateMember(db))
		api.PUT("/members/:id", requirePerm(chk, rbac.MembersWrite), handlers.UpdateMember(db))
		api.POST("/members/:id/activate", requirePerm(chk, rbac.MembersWrite), handlers.ActivateMember(db))
		api.POST("/members/:id/deactivate", requirePerm(chk, rbac.MembersWrite), handlers.DeactivateMember(db))
		api.DELETE("/members/:id", requirePerm(chk, rbac.MembersWrite), handlers.DeleteMember(db, opts.Identity))

		// Documents
		api.GET("/documents", requirePerm(chk, rbac.DocumentsRead), handlers.ListDocuments(db))
		api.GET("/documents/:id", requirePerm(chk, rbac.DocumentsRead), handlers.GetDocument(db))
		api.GET("/documents/:id/download", requirePerm(chk, rbac.DocumentsRead), handlers.DownloadDocument(db, opts.Store))
		api.POST("/documents", requirePerm(chk, rbac.DocumentsWrite), handlers.UploadDocument(db, opts.Store, cfg.MaxUploadBytes()))
		api.DELETE("/documents/:id", requirePerm(chk, rbac.DocumentsWrite), handlers.DeleteDocument(db, opts.Store))

		// Invites
		api.GET("/invites", requirePerm(chk, rbac.InvitesRead), handlers.ListInvites(opts.Invites))
		api.POST("/invites", requirePerm(chk, rbac.InvitesWrite), handlers.CreateInvite(opts.Invites))
		api.DELETE("/invites/:id", requirePerm(chk, rbac.InvitesWrite), handlers.DeleteInvite(opts.Invites))
		api.POST("/invites/:id/resend", requirePerm(chk, rbac.InvitesWrite), handlers.ResendInvite(opts.Invites))

		// E-mail templates
		api.GET("/email-templates", requirePerm(chk, rbac.TemplatesRead), handlers.ListEmailTemplates(db))
		api.GET("/email-templates/builtin", requirePerm(chk, rbac.TemplatesRead), handlers.ListBuiltinTemplates())
		api.GET("/email-templates/:id", requirePerm(chk, rbac.TemplatesRead), handlers.GetEmailTemplate(db))
		api.POST("/email-templates", requirePerm(chk, rbac.TemplatesWrite), handlers.CreateEmailTemplate(db))
		api.PUT("/email-templates/:id", requirePerm(chk, rbac.TemplatesWrite), handlers.UpdateEmailTemplate(db))
		api.DELETE("/email-templates/:id", requirePerm(chk, rbac.TemplatesWrite), handlers.DeleteEmailTemplate(db))
		api.POST("/email-templates/:id/preview", requirePerm(chk, rbac.TemplatesRead), handlers.PreviewEmailTemplate(db))
		api.POST("/email-templates/:id/test", requirePerm(chk, rbac.TemplatesWrite), handlers.TestEmailTemplate(db, opts.Mailer))

		// Audit Trail
		api.GET("/audit", requirePerm(chk, rbac.AuditRead), handlers.ListAudit(db))
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	cfg.MaxAge = 12 * time.Hour
	return cfg
}

// loadViews installs the page templates with sprig helpers. Missing views
// only disable the HTML pages.
func loadViews(r *gin.Engine, cfg config.Config, l logger.Logger) {
	if cfg.ViewsGlob == "" {
		return
	}
	files, err := filepath.Glob(cfg.ViewsGlob)
	if err != nil || len(files) == 0 {
		l.Warn("No views found, HTML pages disabled", "glob", cfg.ViewsGlob)
		return
	}
	r.SetFuncMap(template.FuncMap(sprig.FuncMap()))
	r.LoadHTMLFiles(files...)
	if cfg.StaticDir != "" {
		r.Static("/static", cfg.StaticDir)
	}
}
