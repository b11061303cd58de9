package routes

import (
	"github.com/Instant-Chat-App/InstantChat-Server/auth"
	"github.com/Instant-Chat-App/InstantChat-Server/controllers"
	"github.com/Instant-Chat-App/InstantChat-Server/middlewares"
	"github.com/Instant-Chat-App/InstantChat-Server/realtime"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires every endpoint onto a fresh engine.
func RegisterRoutes(
	conversations *controllers.ConversationsController,
	messages *controllers.MessageController,
	gateway *realtime.Gateway,
	verifier auth.Verifier,
) *gin.Engine {
	r := gin.Default()

	corsConfig := cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}
	r.Use(cors.New(corsConfig))

	r.GET("/ws", controllers.WSController(gateway))

	protected := r.Group("/api")
	protected.Use(middlewares.TokenAuthMiddleware(verifier))
	{
		protected.GET("/conversations", conversations.GetConversations)
		protected.POST("/conversations/private", conversations.CreatePrivate)
		protected.POST("/conversations/group", conversations.CreateGroup)
		protected.POST("/conversations/channel", conversations.CreateChannel)
		protected.DELETE("/conversations/:conversation_id", conversations.DeleteConversation)
		protected.PATCH("/conversations/:conversation_id/name", conversations.Rename)
		protected.PATCH("/conversations/:conversation_id/cover", conversations.SetCoverImage)
		protected.GET("/conversations/:conversation_id/members", conversations.GetMembers)
		protected.POST("/conversations/:conversation_id/members", conversations.AddMembers)
		protected.DELETE("/conversations/:conversation_id/members/:member_id", conversations.KickMember)
		protected.POST("/conversations/:conversation_id/leave", conversations.LeaveConversation)
		protected.GET("/conversations/:conversation_id/unread", conversations.UnreadCount)

		protected.GET("/conversations/:conversation_id/messages", messages.GetMessages)
		protected.POST("/conversations/:conversation_id/messages", messages.SendMessage)
		protected.PATCH("/messages/:message_id", messages.EditMessage)
		protected.DELETE("/messages/:message_id", messages.DeleteMessage)
		protected.GET("/messages/:message_id/statuses", messages.GetDeliveryStatuses)
		protected.PUT("/messages/:message_id/reactions", messages.React)
		protected.DELETE("/messages/:message_id/reactions", messages.RemoveReaction)
	}

	return r
}
