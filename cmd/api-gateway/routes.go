package main

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clubconnect-api/internal/handler"
	"github.com/noah-isme/clubconnect-api/internal/middleware"
)

type routeHandlers struct {
	auth      *handler.AuthHandler
	schools   *handler.SchoolHandler
	teachers  *handler.TeacherHandler
	covers    *handler.CoverHandler
	rules     *handler.CoverRuleHandler
	calendar  *handler.CalendarHandler
	broadcast *handler.BroadcastHandler
	exports   *handler.ExportHandler
	metrics   *handler.MetricsHandler
}

func registerRoutes(api *gin.RouterGroup, h routeHandlers, auth gin.HandlerFunc) {
	authGroup := api.Group("/auth")
	authGroup.POST("/login", h.auth.Login)
	authGroup.POST("/refresh", h.auth.Refresh)
	authGroup.POST("/logout", auth, h.auth.Logout)
	authGroup.GET("/me", auth, h.auth.Me)

	staff := api.Group("", auth, middleware.AnyStaff())
	admin := api.Group("", auth, middleware.AdminOnly())

	staff.GET("/schools", h.schools.ListSchools)
	staff.GET("/schools/:id", h.schools.GetSchool)
	staff.GET("/schools/:id/clubs", h.schools.ListSchoolClubs)
	admin.POST("/schools", h.schools.CreateSchool)
	admin.PUT("/schools/:id", h.schools.UpdateSchool)
	admin.DELETE("/schools/:id", h.schools.DeleteSchool)

	staff.GET("/clubs", h.schools.ListClubs)
	staff.GET("/clubs/:id", h.schools.GetClub)
	admin.POST("/clubs", h.schools.CreateClub)
	admin.PUT("/clubs/:id", h.schools.UpdateClub)
	admin.DELETE("/clubs/:id", h.schools.DeleteClub)

	staff.GET("/teachers", h.teachers.List)
	staff.GET("/teachers/:id", h.teachers.Get)
	admin.POST("/teachers", h.teachers.Create)
	admin.PUT("/teachers/:id", h.teachers.Update)
	admin.POST("/teachers/:id/block", h.teachers.Block)
	admin.POST("/teachers/:id/unblock", h.teachers.Unblock)
	admin.DELETE("/teachers/:id", h.teachers.Delete)

	staff.GET("/covers", h.covers.List)
	staff.POST("/covers", h.covers.Create)
	staff.GET("/covers/:id", h.covers.Get)
	staff.PUT("/covers/:id", h.covers.Update)
	staff.PATCH("/covers/:id/move", h.covers.Move)
	staff.PATCH("/covers/:id/state", h.covers.SetState)
	staff.PUT("/covers/:id/assignment", h.covers.Assign)
	admin.DELETE("/covers/:id", h.covers.Delete)
	staff.PATCH("/assignments/:id", h.covers.UpdateAssignment)
	staff.DELETE("/assignments/:id", h.covers.RemoveAssignment)

	staff.GET("/cover-rules", h.rules.List)
	staff.POST("/cover-rules", h.rules.Create)
	staff.GET("/cover-rules/:id", h.rules.Get)
	staff.PUT("/cover-rules/:id", h.rules.Update)
	staff.POST("/cover-rules/:id/extend", h.rules.Extend)
	admin.DELETE("/cover-rules/:id", h.rules.Delete)

	staff.GET("/calendar", h.calendar.Events)
	staff.GET("/calendar/days/:date", h.calendar.Day)

	admin.GET("/broadcasts", h.broadcast.List)
	admin.POST("/broadcasts", h.broadcast.Create)
	admin.GET("/broadcasts/:id", h.broadcast.Get)
	admin.PUT("/broadcasts/:id", h.broadcast.Update)
	admin.DELETE("/broadcasts/:id", h.broadcast.Delete)
	admin.GET("/broadcasts/:id/preview", h.broadcast.Preview)
	admin.GET("/broadcasts/:id/messages", h.broadcast.Messages)
	admin.POST("/broadcasts/:id/send", h.broadcast.Send)
	admin.POST("/broadcasts/:id/send-async", h.broadcast.SendAsync)
	admin.POST("/broadcasts/:id/release", h.broadcast.Release)

	staff.GET("/tables", h.exports.Tables)
	staff.GET("/tables/:entity", h.exports.Table)
	staff.GET("/exports/:entity", h.exports.Export)

	admin.GET("/metrics/summary", h.metrics.Snapshot)
}
