package cli

import (
	bookinghandler "rentals/internal/bookings/handler"
	bookingrepo "rentals/internal/bookings/repository"
	bookingservice "rentals/internal/bookings/service"
	bookingvalidator "rentals/internal/bookings/validator"
	conversationhandler "rentals/internal/conversations/handler"
	conversationrepo "rentals/internal/conversations/repository"
	conversationservice "rentals/internal/conversations/service"
	conversationvalidator "rentals/internal/conversations/validator"
	propertyrepo "rentals/internal/properties/repository"
	"rentals/pkg/config"
	"rentals/pkg/contracts"
	"rentals/pkg/events"
)

type stores struct {
	bookings      bookingrepo.BookingRepository
	properties    propertyrepo.PropertyRepository
	conversations conversationrepo.ConversationRepository
	messages      conversationrepo.MessageRepository
}

func mongoStores(cfg *config.Config) stores {
	return stores{
		bookings:      bookingrepo.NewMongoBookingRepository(cfg),
		properties:    propertyrepo.NewMongoPropertyRepository(cfg),
		conversations: conversationrepo.NewMongoConversationRepository(cfg),
		messages:      conversationrepo.NewMongoMessageRepository(cfg),
	}
}

func buildHandlers(cfg *config.Config, s stores, publisher events.Publisher) []contracts.Handler {
	bookingService := bookingservice.NewBookingService(
		s.bookings,
		s.properties,
		bookingvalidator.NewBookingValidator(cfg.Log),
		publisher,
		cfg,
	)
	conversationService := conversationservice.NewConversationService(
		s.conversations,
		s.messages,
		conversationvalidator.NewConversationValidator(cfg.Log, cfg.MaxMessageLength),
		publisher,
		cfg,
	)

	cfg.Log.Info("Services initialized", "database", cfg.MongoDatabaseName)
	return []contracts.Handler{
		bookinghandler.NewBookingHandler(bookingService, cfg.Log),
		conversationhandler.NewConversationHandler(conversationService, cfg.Log),
	}
}
