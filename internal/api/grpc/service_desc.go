package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const BookingServiceName = "rentals.booking.v1.BookingService"

// BookingServiceServer is the server API for rentals.booking.v1.BookingService.
type BookingServiceServer interface {
	GetQuote(context.Context, *QuoteRequest) (*QuoteResponse, error)
	CreateReservation(context.Context, *CreateReservationRequest) (*RentalResponse, error)
	GetRental(context.Context, *RentalRequest) (*RentalResponse, error)
	ListMyRentals(context.Context, *ListRentalsRequest) (*ListRentalsResponse, error)
	ListMyLendings(context.Context, *ListRentalsRequest) (*ListRentalsResponse, error)
	CancelRental(context.Context, *RentalRequest) (*RentalResponse, error)
	ConfirmRental(context.Context, *RentalRequest) (*RentalResponse, error)
	RejectRental(context.Context, *RentalRequest) (*RentalResponse, error)
	StartRental(context.Context, *RentalRequest) (*RentalResponse, error)
	CompleteRental(context.Context, *RentalRequest) (*RentalResponse, error)
	UpdateStatus(context.Context, *UpdateStatusRequest) (*RentalResponse, error)
	SettlePayment(context.Context, *SettlePaymentRequest) (*SettlePaymentResponse, error)
	GetCart(context.Context, *GetCartRequest) (*CartResponse, error)
	ListActiveRentals(context.Context, *ListRentalsRequest) (*ListRentalsResponse, error)
}

func fullMethod(name string) string {
	return "/" + BookingServiceName + "/" + name
}

func unary[Req, Resp any](name string, call func(BookingServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(BookingServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(BookingServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// BookingServiceDesc describes the service for grpc.Server.RegisterService.
var BookingServiceDesc = grpc.ServiceDesc{
	ServiceName: BookingServiceName,
	HandlerType: (*BookingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetQuote", BookingServiceServer.GetQuote),
		unary("CreateReservation", BookingServiceServer.CreateReservation),
		unary("GetRental", BookingServiceServer.GetRental),
		unary("ListMyRentals", BookingServiceServer.ListMyRentals),
		unary("ListMyLendings", BookingServiceServer.ListMyLendings),
		unary("CancelRental", BookingServiceServer.CancelRental),
		unary("ConfirmRental", BookingServiceServer.ConfirmRental),
		unary("RejectRental", BookingServiceServer.RejectRental),
		unary("StartRental", BookingServiceServer.StartRental),
		unary("CompleteRental", BookingServiceServer.CompleteRental),
		unary("UpdateStatus", BookingServiceServer.UpdateStatus),
		unary("SettlePayment", BookingServiceServer.SettlePayment),
		unary("GetCart", BookingServiceServer.GetCart),
		unary("ListActiveRentals", BookingServiceServer.ListActiveRentals),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rentals/booking/v1/booking.proto",
}

func RegisterBookingServiceServer(s grpc.ServiceRegistrar, srv BookingServiceServer) {
	s.RegisterService(&BookingServiceDesc, srv)
}

// BookingServiceClient calls BookingService with the JSON codec.
type BookingServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewBookingServiceClient(cc grpc.ClientConnInterface) *BookingServiceClient {
	return &BookingServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, name string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, fullMethod(name), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BookingServiceClient) GetQuote(ctx context.Context, in *QuoteRequest, opts ...grpc.CallOption) (*QuoteResponse, error) {
	return invoke[QuoteResponse](ctx, c.cc, "GetQuote", in, opts)
}

func (c *BookingServiceClient) CreateReservation(ctx context.Context, in *CreateReservationRequest, opts ...grpc.CallOption) (*RentalResponse, error) {
	return invoke[RentalResponse](ctx, c.cc, "CreateReservation", in, opts)
}

func (c *BookingServiceClient) GetRental(ctx context.Context, in *RentalRequest, opts ...grpc.CallOption) (*RentalResponse, error) {
	return invoke[RentalResponse](ctx, c.cc, "GetRental", in, opts)
}

func (c *BookingServiceClient) ListMyRentals(ctx context.Context, in *ListRentalsRequest, opts ...grpc.CallOption) (*ListRentalsResponse, error) {
	return invoke[ListRentalsResponse](ctx, c.cc, "ListMyRentals", in, opts)
}

func (c *BookingServiceClient) ListMyLendings(ctx context.Context, in *ListRentalsRequest, opts ...grpc.CallOption) (*ListRentalsResponse, error) {
	return invoke[ListRentalsResponse](ctx, c.cc, "ListMyLendings", in, opts)
}

func (c *BookingServiceClient) CancelRental(ctx context.Context, in *RentalRequest, opts ...grpc.CallOption) (*RentalResponse, error) {
	return invoke[RentalResponse](ctx, c.cc, "CancelRental", in, opts)
}

func (c *BookingServiceClient) ConfirmRental(ctx context.Context, in *RentalRequest, opts ...grpc.CallOption) (*RentalResponse, error) {
	return invoke[RentalResponse](ctx, c.cc, "ConfirmRental", in, opts)
}

func (c *BookingServiceClient) RejectRental(ctx context.Context, in *RentalRequest, opts ...grpc.CallOption) (*RentalResponse, error) {
	return invoke[RentalResponse](ctx, c.cc, "RejectRental", in, opts)
}

func (c *BookingServiceClient) StartRental(ctx context.Context, in *RentalRequest, opts ...grpc.CallOption) (*RentalResponse, error) {
	return invoke[RentalResponse](ctx, c.cc, "StartRental", in, opts)
}

func (c *BookingServiceClient) CompleteRental(ctx context.Context, in *RentalRequest, opts ...grpc.CallOption) (*RentalResponse, error) {
	return invoke[RentalResponse](ctx, c.cc, "CompleteRental", in, opts)
}

func (c *BookingServiceClient) UpdateStatus(ctx context.Context, in *UpdateStatusRequest, opts ...grpc.CallOption) (*RentalResponse, error) {
	return invoke[RentalResponse](ctx, c.cc, "UpdateStatus", in, opts)
}

func (c *BookingServiceClient) SettlePayment(ctx context.Context, in *SettlePaymentRequest, opts ...grpc.CallOption) (*SettlePaymentResponse, error) {
	return invoke[SettlePaymentResponse](ctx, c.cc, "SettlePayment", in, opts)
}

func (c *BookingServiceClient) GetCart(ctx context.Context, in *GetCartRequest, opts ...grpc.CallOption) (*CartResponse, error) {
	return invoke[CartResponse](ctx, c.cc, "GetCart", in, opts)
}

func (c *BookingServiceClient) ListActiveRentals(ctx context.Context, in *ListRentalsRequest, opts ...grpc.CallOption) (*ListRentalsResponse, error) {
	return invoke[ListRentalsResponse](ctx, c.cc, "ListActiveRentals", in, opts)
}
