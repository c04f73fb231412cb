package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/slotwise/slotwise/internal/claim"
	"github.com/slotwise/slotwise/internal/realtime"
	"github.com/slotwise/slotwise/internal/service"
)

// API holds the HTTP surface: REST handlers plus the websocket endpoint.
type API struct {
	availability *service.AvailabilityService
	bookings     *service.BookingService
	schedule     *service.ScheduleService
	coordinator  *claim.Coordinator
	hub          *realtime.Hub

	validate *validator.Validate
	logger   *zap.Logger
}

func NewAPI(
	availability *service.AvailabilityService,
	bookings *service.BookingService,
	schedule *service.ScheduleService,
	coordinator *claim.Coordinator,
	hub *realtime.Hub,
	logger *zap.Logger,
) *API {
	return &API{
		availability: availability,
		bookings:     bookings,
		schedule:     schedule,
		coordinator:  coordinator,
		hub:          hub,
		validate:     validator.New(),
		logger:       logger,
	}
}

// Router assembles the chi mux with middleware and every route.
func (a *API) Router(corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	if len(corsOrigins) > 0 {
		c := cors.New(cors.Options{
			AllowedOrigins:   corsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
			AllowCredentials: true,
			MaxAge:           300,
		})
		r.Use(c.Handler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/organizers/{username}/slots", a.getSlots)

		r.Post("/bookings", a.createBooking)
		r.Delete("/bookings/{manageToken}", a.cancelBooking)
		r.Put("/bookings/{manageToken}", a.rescheduleBooking)

		r.Route("/organizers/{username}", func(r chi.Router) {
			r.Get("/rules", a.listRules)
			r.Post("/rules", a.createRule)
			r.Put("/rules/{ruleID}", a.updateRule)
			r.Delete("/rules/{ruleID}", a.deleteRule)

			r.Get("/exceptions", a.listExceptions)
			r.Put("/exceptions", a.upsertException)
			r.Delete("/exceptions/{exceptionID}", a.deleteException)

			r.Get("/meeting-types", a.listMeetingTypes)
			r.Post("/meeting-types", a.createMeetingType)
			r.Delete("/meeting-types/{meetingTypeID}", a.deactivateMeetingType)
		})
	})

	r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
		realtime.ServeWS(a.hub, w, req)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
