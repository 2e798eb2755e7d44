package routes

import (
	"github.com/gin-gonic/gin"

	"potencialize/internal/authz"
	"potencialize/internal/handlers"
	"potencialize/internal/middleware"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	Health     *handlers.HealthHandler
	User       *handlers.UserHandler
	Role       *handlers.RoleHandler
	Lead       *handlers.LeadHandler
	Deal       *handlers.DealHandler
	Product    *handlers.ProductHandler
	Project    *handlers.ProjectHandler
	Task       *handlers.TaskHandler
	Ticket     *handlers.TicketHandler
	Onboarding *handlers.OnboardingHandler
	Report     *handlers.ReportHandler
	Cascade    *handlers.CascadeHandler
	File       *handlers.FileHandler
}

func SetupRoutes(r *gin.Engine, reg *authz.Registry, verifier middleware.TokenVerifier, h Handlers) *gin.Engine {
	// ---- public
	r.POST("/login", h.Auth.Login)
	r.GET("/healthz", h.Health.Live)
	r.GET("/healthz/ready", h.Health.Ready)

	// ---- protected
	r.Use(middleware.AuthMiddleware(verifier))
	need := func(key authz.Capability) gin.HandlerFunc { return middleware.RequirePermission(reg, key) }

	r.GET("/me", h.Auth.Me)

	// USERS: self lookup is allowed, the service checks the rest
	users := r.Group("/users")
	{
		users.POST("/", h.User.Create)
		users.GET("/", h.User.List)
		users.GET("/:id", h.User.GetByID)
		users.PUT("/:id", h.User.Update)
		users.POST("/:id/deactivate", h.User.Deactivate)
	}

	roles := r.Group("/roles")
	{
		roles.GET("/", h.Role.List)
		roles.POST("/", need(authz.ManageRoles), h.Role.Save)
		roles.PUT("/:id", need(authz.ManageRoles), h.Role.Save)
		roles.DELETE("/:id", need(authz.ManageRoles), h.Role.Delete)
	}

	// CRM
	leads := r.Group("/leads", need(authz.ViewCRM))
	{
		leads.POST("/", h.Lead.Create)
		leads.GET("/", h.Lead.List)
		leads.GET("/:id", h.Lead.GetByID)
		leads.PUT("/:id", h.Lead.Update)
		leads.DELETE("/:id", h.Lead.Delete)
		leads.POST("/:id/convert", h.Lead.Convert)
	}

	deals := r.Group("/deals", need(authz.ViewCRM))
	{
		deals.POST("/", h.Deal.Create)
		deals.GET("/", h.Deal.List)
		deals.GET("/:id", h.Deal.GetByID)
		deals.PUT("/:id", h.Deal.Update)
		deals.DELETE("/:id", h.Deal.Delete)
		deals.POST("/:id/stage", h.Deal.ChangeStage)
		deals.PUT("/:id/products", h.Deal.SetProducts)
		deals.POST("/:id/proposal", h.Deal.Proposal)
	}

	products := r.Group("/products", need(authz.ViewCRM))
	{
		products.GET("/", h.Product.List)
		products.POST("/", h.Product.Create)
		products.DELETE("/:id", h.Product.Delete)
	}

	files := r.Group("/files", need(authz.ViewCRM))
	{
		files.GET("/:name", h.File.Serve)
	}

	// PROJECTS
	projects := r.Group("/projects", need(authz.ViewProjects))
	{
		projects.POST("/", h.Project.Create)
		projects.GET("/", h.Project.List)
		projects.GET("/:id", h.Project.GetByID)
		projects.PUT("/:id", h.Project.Update)
		projects.DELETE("/:id", h.Project.Delete)
		projects.GET("/:id/dashboard", h.Project.Dashboard)
		projects.GET("/:id/meetings", h.Project.Meetings)
		projects.POST("/:id/meetings", h.Project.AddMeeting)
		projects.GET("/:id/documents", h.Project.Documents)
		projects.POST("/:id/documents", h.Project.AddDocument)
		projects.GET("/:id/notes", h.Project.Notes)
		projects.POST("/:id/notes", h.Project.AddNote)
		projects.POST("/:id/action-plan", h.Project.ActionPlan)
	}

	tasks := r.Group("/tasks", need(authz.ViewProjects))
	{
		tasks.POST("/", h.Task.Create)
		tasks.GET("/", h.Task.List)
		tasks.GET("/:id", h.Task.GetByID)
		tasks.PUT("/:id", h.Task.Update)
		tasks.DELETE("/:id", h.Task.Delete)
		tasks.POST("/:id/status", h.Task.ChangeStatus)
		tasks.POST("/:id/subtasks", h.Task.AddSubTask)
		tasks.POST("/:id/subtasks/:sub_id/toggle", h.Task.ToggleSubTask)
		tasks.DELETE("/:id/subtasks/:sub_id", h.Task.DeleteSubTask)
	}

	tickets := r.Group("/tickets", need(authz.ViewTickets))
	{
		tickets.POST("/", h.Ticket.Create)
		tickets.GET("/", h.Ticket.List)
		tickets.GET("/:id", h.Ticket.GetByID)
		tickets.PUT("/:id", h.Ticket.Update)
		tickets.POST("/:id/interactions", h.Ticket.Reply)
		tickets.POST("/:id/resolve", h.Ticket.Resolve)
	}

	onboarding := r.Group("/onboarding", need(authz.ViewOnboarding))
	{
		onboarding.POST("/", h.Onboarding.Create)
		onboarding.GET("/", h.Onboarding.List)
		onboarding.GET("/:id", h.Onboarding.GetByID)
		onboarding.POST("/:id/checklist", h.Onboarding.AddChecklistItem)
		onboarding.POST("/:id/checklist/:item_id/toggle", h.Onboarding.ToggleChecklistItem)
		onboarding.PUT("/:id/checklist/:item_id", h.Onboarding.UpdateChecklistItem)
		onboarding.POST("/:id/notes", h.Onboarding.AddNote)
		onboarding.POST("/:id/stage", h.Onboarding.ChangeStage)
		onboarding.POST("/:id/finish", h.Onboarding.Finish)
	}

	// REPORTS
	reports := r.Group("/reports", need(authz.ViewDashboard))
	{
		reports.GET("/overview", h.Report.Overview)
		reports.GET("/funnel", h.Report.Funnel)
		reports.GET("/history/:kind/:id", h.Report.History)
	}

	cascades := r.Group("/cascades", need(authz.ViewDashboard))
	{
		cascades.GET("/", h.Cascade.List)
		cascades.POST("/:id/resume", h.Cascade.Resume)
	}

	return r
}
