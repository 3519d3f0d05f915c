// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
)

const bookingService = "/rentals.booking.v1.BookingService/"

// EndpointSecurityConfig maps gRPC methods to their required security level.
// Methods missing from the map are treated as SecurityAccess.
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Health - Public
	"/grpc.health.v1.Health/Check": SecurityPublic,
	"/grpc.health.v1.Health/Watch": SecurityPublic,

	// BookingService - Public
	bookingService + "GetQuote": SecurityPublic,

	// BookingService - Access Protected
	bookingService + "CreateReservation": SecurityAccess,
	bookingService + "GetRental":         SecurityAccess,
	bookingService + "ListMyRentals":     SecurityAccess,
	bookingService + "ListMyLendings":    SecurityAccess,
	bookingService + "CancelRental":      SecurityAccess,
	bookingService + "ConfirmRental":     SecurityAccess,
	bookingService + "RejectRental":      SecurityAccess,
	bookingService + "StartRental":       SecurityAccess,
	bookingService + "CompleteRental":    SecurityAccess,
	bookingService + "UpdateStatus":      SecurityAccess,
	bookingService + "SettlePayment":     SecurityAccess,
	bookingService + "GetCart":           SecurityAccess,
	bookingService + "ListActiveRentals": SecurityAccess,
}

// RequiredSecurityLevel looks up a method, defaulting to SecurityAccess.
func RequiredSecurityLevel(fullMethod string) SecurityLevel {
	if level, ok := EndpointSecurityConfig[fullMethod]; ok {
		return level
	}
	return SecurityAccess
}
