package controllers

import (
	"net/http"

	"github.com/angelmondragon/univend-backend/api/middleware"
	"github.com/angelmondragon/univend-backend/api/responses"
	"github.com/angelmondragon/univend-backend/api/validators"
	"github.com/angelmondragon/univend-backend/internal/notifications"
	"github.com/angelmondragon/univend-backend/pkg/logger"
)

// ListNotifications returns the caller's in-app feed, newest first.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := errorReplier(w, r, logg)
		if svc == nil {
			fail(serviceUnavailable("notifications"))
			return
		}

		caller, err := middleware.RequireIdentity(r.Context())
		if err != nil {
			fail(err)
			return
		}

		page, err := validators.ParsePage(r)
		if err != nil {
			fail(err)
			return
		}
		unreadOnly, err := validators.QueryBool(r, "unread")
		if err != nil {
			fail(err)
			return
		}

		result, err := svc.List(r.Context(), notifications.ListParams{
			UserID:     caller.UserID,
			Limit:      page.Limit,
			Cursor:     page.Cursor,
			UnreadOnly: unreadOnly,
		})
		if err != nil {
			fail(err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := errorReplier(w, r, logg)
		if svc == nil {
			fail(serviceUnavailable("notifications"))
			return
		}

		caller, err := middleware.RequireIdentity(r.Context())
		if err != nil {
			fail(err)
			return
		}

		notificationID, err := validators.ParseUUIDParam(r, "notificationId")
		if err != nil {
			fail(err)
			return
		}

		if err := svc.MarkRead(r.Context(), caller.UserID, notificationID); err != nil {
			fail(err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"read": true})
	}
}

func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := errorReplier(w, r, logg)
		if svc == nil {
			fail(serviceUnavailable("notifications"))
			return
		}

		caller, err := middleware.RequireIdentity(r.Context())
		if err != nil {
			fail(err)
			return
		}

		count, err := svc.MarkAllRead(r.Context(), caller.UserID)
		if err != nil {
			fail(err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"updated": count})
	}
}

// RegisterDevice stores an FCM registration token for push delivery.
func RegisterDevice(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := errorReplier(w, r, logg)
		if svc == nil {
			fail(serviceUnavailable("notifications"))
			return
		}

		caller, err := middleware.RequireIdentity(r.Context())
		if err != nil {
			fail(err)
			return
		}

		var payload notifications.RegisterDeviceInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			fail(err)
			return
		}

		if err := svc.RegisterDevice(r.Context(), caller.UserID, payload); err != nil {
			fail(err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"registered": true})
	}
}
