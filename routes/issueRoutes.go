package routes

import (
	"github.com/gin-gonic/gin"

	"citizenconnect/controllers"
	"citizenconnect/middlewares"
)

// IssueRoutes sets up the issue, reply and comment routes
func IssueRoutes(r *gin.Engine, h *controllers.Handler, auth, issueLimit gin.HandlerFunc) {
	official := middlewares.RequireOfficial()

	issue := r.Group("/api/issues", auth)
	{
		issue.POST("", issueLimit, h.CreateIssue)
		issue.GET("", h.GetAllIssues)
		issue.GET("/mine", h.GetIssuesByUser)
		issue.GET("/ticket/:ticketId", h.GetIssueByTicket)
		issue.GET("/:id", h.GetIssue)
		issue.PUT("/:id", h.UpdateIssue)
		issue.DELETE("/:id", h.DeleteIssue)
		issue.POST("/:id/vote", h.HandleVoteOnIssue)
		issue.POST("/:id/comments", h.CommentOnIssue)
		issue.PATCH("/:id/status", official, h.UpdateIssueStatus)

		issue.POST("/:id/replies", official, h.SubmitReply)
		issue.POST("/:id/replies/:replyId/comments", h.CommentOnReply)
		issue.POST("/:id/replies/:replyId/followup", h.RespondToFollowUp)
	}
}
