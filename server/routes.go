package server

func (s *Server) initRoutes() {
	// OAuth2
	s.RegisterRouteFunc("GET "+RouteAuthorize, s.Authorize())
	s.RegisterRouteFunc("POST "+RouteToken, s.Token())
	s.RegisterRouteFunc("POST "+RouteRegister, s.Register())

	// Discovery
	s.RegisterRouteFunc("GET "+RouteWellKnownAuthorizationServer, s.WellKnownAuthorizationServer())
	s.RegisterRouteFunc("GET "+RouteWellKnownProtectedResource, s.WellKnownProtectedResource())

	// Protocol transports
	s.RegisterRouteFunc("GET "+RouteStream, ChainMiddleware(s.Stream(), s.gate.Require))
	s.RegisterRouteFunc("POST "+RouteMessages, s.StreamMessage())
	s.RegisterRouteFunc("POST "+RouteRPC, ChainMiddleware(s.RPC(), s.gate.Require))

	s.RegisterRouteFunc("GET "+RouteHealth, s.Health())
}
