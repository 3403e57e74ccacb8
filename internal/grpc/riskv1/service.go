package riskv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "integrityos.risk.v1.RiskEngine"

const (
	RiskEngine_Classify_FullMethodName         = "/" + ServiceName + "/Classify"
	RiskEngine_Retrain_FullMethodName          = "/" + ServiceName + "/Retrain"
	RiskEngine_ImportDataset_FullMethodName    = "/" + ServiceName + "/ImportDataset"
	RiskEngine_AssessObject_FullMethodName     = "/" + ServiceName + "/AssessObject"
	RiskEngine_ForecastPipeline_FullMethodName = "/" + ServiceName + "/ForecastPipeline"
	RiskEngine_TopRisks_FullMethodName         = "/" + ServiceName + "/TopRisks"
	RiskEngine_ModelStatus_FullMethodName      = "/" + ServiceName + "/ModelStatus"
)

// RiskEngineServer is the server API for the RiskEngine service.
type RiskEngineServer interface {
	Classify(context.Context, *ClassifyRequest) (*ClassifyResponse, error)
	Retrain(context.Context, *RetrainRequest) (*RetrainResponse, error)
	ImportDataset(context.Context, *ImportDatasetRequest) (*ImportDatasetResponse, error)
	AssessObject(context.Context, *AssessObjectRequest) (*AssessObjectResponse, error)
	ForecastPipeline(context.Context, *ForecastPipelineRequest) (*ForecastPipelineResponse, error)
	TopRisks(context.Context, *TopRisksRequest) (*TopRisksResponse, error)
	ModelStatus(context.Context, *ModelStatusRequest) (*ModelStatusResponse, error)
	mustEmbedUnimplementedRiskEngineServer()
}

// UnimplementedRiskEngineServer must be embedded for forward compatibility.
type UnimplementedRiskEngineServer struct{}

func (UnimplementedRiskEngineServer) Classify(context.Context, *ClassifyRequest) (*ClassifyResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Classify not implemented")
}
func (UnimplementedRiskEngineServer) Retrain(context.Context, *RetrainRequest) (*RetrainResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Retrain not implemented")
}
func (UnimplementedRiskEngineServer) ImportDataset(context.Context, *ImportDatasetRequest) (*ImportDatasetResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ImportDataset not implemented")
}
func (UnimplementedRiskEngineServer) AssessObject(context.Context, *AssessObjectRequest) (*AssessObjectResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method AssessObject not implemented")
}
func (UnimplementedRiskEngineServer) ForecastPipeline(context.Context, *ForecastPipelineRequest) (*ForecastPipelineResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ForecastPipeline not implemented")
}
func (UnimplementedRiskEngineServer) TopRisks(context.Context, *TopRisksRequest) (*TopRisksResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method TopRisks not implemented")
}
func (UnimplementedRiskEngineServer) ModelStatus(context.Context, *ModelStatusRequest) (*ModelStatusResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ModelStatus not implemented")
}
func (UnimplementedRiskEngineServer) mustEmbedUnimplementedRiskEngineServer() {}

// RegisterRiskEngineServer registers srv on s.
func RegisterRiskEngineServer(s grpc.ServiceRegistrar, srv RiskEngineServer) {
	s.RegisterService(&RiskEngine_ServiceDesc, srv)
}

type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)

func unaryHandler[Req, Resp any](fullMethod string, call func(RiskEngineServer, context.Context, *Req) (*Resp, error)) methodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RiskEngineServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RiskEngineServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// RiskEngine_ServiceDesc describes the RiskEngine service for grpc.ServiceRegistrar.
var RiskEngine_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RiskEngineServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Classify", Handler: unaryHandler(RiskEngine_Classify_FullMethodName, RiskEngineServer.Classify)},
		{MethodName: "Retrain", Handler: unaryHandler(RiskEngine_Retrain_FullMethodName, RiskEngineServer.Retrain)},
		{MethodName: "ImportDataset", Handler: unaryHandler(RiskEngine_ImportDataset_FullMethodName, RiskEngineServer.ImportDataset)},
		{MethodName: "AssessObject", Handler: unaryHandler(RiskEngine_AssessObject_FullMethodName, RiskEngineServer.AssessObject)},
		{MethodName: "ForecastPipeline", Handler: unaryHandler(RiskEngine_ForecastPipeline_FullMethodName, RiskEngineServer.ForecastPipeline)},
		{MethodName: "TopRisks", Handler: unaryHandler(RiskEngine_TopRisks_FullMethodName, RiskEngineServer.TopRisks)},
		{MethodName: "ModelStatus", Handler: unaryHandler(RiskEngine_ModelStatus_FullMethodName, RiskEngineServer.ModelStatus)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "integrityos/risk/v1/risk_engine.json",
}

// RiskEngineClient is the client API for the RiskEngine service.
type RiskEngineClient interface {
	Classify(ctx context.Context, in *ClassifyRequest, opts ...grpc.CallOption) (*ClassifyResponse, error)
	Retrain(ctx context.Context, in *RetrainRequest, opts ...grpc.CallOption) (*RetrainResponse, error)
	ImportDataset(ctx context.Context, in *ImportDatasetRequest, opts ...grpc.CallOption) (*ImportDatasetResponse, error)
	AssessObject(ctx context.Context, in *AssessObjectRequest, opts ...grpc.CallOption) (*AssessObjectResponse, error)
	ForecastPipeline(ctx context.Context, in *ForecastPipelineRequest, opts ...grpc.CallOption) (*ForecastPipelineResponse, error)
	TopRisks(ctx context.Context, in *TopRisksRequest, opts ...grpc.CallOption) (*TopRisksResponse, error)
	ModelStatus(ctx context.Context, in *ModelStatusRequest, opts ...grpc.CallOption) (*ModelStatusResponse, error)
}

type riskEngineClient struct {
	cc grpc.ClientConnInterface
}

// NewRiskEngineClient returns a client that sends every call with the JSON content subtype.
func NewRiskEngineClient(cc grpc.ClientConnInterface) RiskEngineClient {
	return &riskEngineClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	callOpts := append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, callOpts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *riskEngineClient) Classify(ctx context.Context, in *ClassifyRequest, opts ...grpc.CallOption) (*ClassifyResponse, error) {
	return invoke[ClassifyResponse](ctx, c.cc, RiskEngine_Classify_FullMethodName, in, opts)
}

func (c *riskEngineClient) Retrain(ctx context.Context, in *RetrainRequest, opts ...grpc.CallOption) (*RetrainResponse, error) {
	return invoke[RetrainResponse](ctx, c.cc, RiskEngine_Retrain_FullMethodName, in, opts)
}

func (c *riskEngineClient) ImportDataset(ctx context.Context, in *ImportDatasetRequest, opts ...grpc.CallOption) (*ImportDatasetResponse, error) {
	return invoke[ImportDatasetResponse](ctx, c.cc, RiskEngine_ImportDataset_FullMethodName, in, opts)
}

func (c *riskEngineClient) AssessObject(ctx context.Context, in *AssessObjectRequest, opts ...grpc.CallOption) (*AssessObjectResponse, error) {
	return invoke[AssessObjectResponse](ctx, c.cc, RiskEngine_AssessObject_FullMethodName, in, opts)
}

func (c *riskEngineClient) ForecastPipeline(ctx context.Context, in *ForecastPipelineRequest, opts ...grpc.CallOption) (*ForecastPipelineResponse, error) {
	return invoke[ForecastPipelineResponse](ctx, c.cc, RiskEngine_ForecastPipeline_FullMethodName, in, opts)
}

func (c *riskEngineClient) TopRisks(ctx context.Context, in *TopRisksRequest, opts ...grpc.CallOption) (*TopRisksResponse, error) {
	return invoke[TopRisksResponse](ctx, c.cc, RiskEngine_TopRisks_FullMethodName, in, opts)
}

func (c *riskEngineClient) ModelStatus(ctx context.Context, in *ModelStatusRequest, opts ...grpc.CallOption) (*ModelStatusResponse, error) {
	return invoke[ModelStatusResponse](ctx, c.cc, RiskEngine_ModelStatus_FullMethodName, in, opts)
}
