package config

import "time"

// Well-known service names of the gym cluster.
const (
	ServiceMiembros     = "miembros-service"
	ServiceClases       = "clases-service"
	ServiceEntrenadores = "entrenadores-service"
	ServiceEquipos      = "equipos-service"
	ServicePagos        = "pagos-service"
)

// Fallback identifiers.
const (
	FallbackDefault  = "fallback"
	FallbackMiembros = "miembros-fallback"
	FallbackClases   = "clases-fallback"
	FallbackPagos    = "pagos-fallback"
)

// Built-in defaults.
const (
	DefaultListenerPort       = 8080
	DefaultMetricsPort        = 9090
	DefaultMetricsPath        = "/metrics"
	DefaultRoleClaim          = "realm_access.roles"
	DefaultJWKSRefresh        = 15 * time.Minute
	DefaultClockSkew          = 30 * time.Second
	DefaultFailureThreshold   = 3
	DefaultOpenDuration       = 30 * time.Second
	DefaultPagosTimeout       = 3 * time.Second
	DefaultAggregationTimeout = 3 * time.Second
	DefaultIssuer             = "http://localhost:8180/realms/gimnasio"
	sourceHeader              = "X-Source"
	sourceHeaderValue         = "api-gateway"
)

// DefaultConfig returns the gateway configuration for the gym cluster:
// the five service routes, the payments processing breaker, the member
// summary aggregation and the fallback endpoints.
func DefaultConfig() *GatewayConfig {
	return &GatewayConfig{
		APIVersion: APIVersion,
		Kind:       Kind,
		Metadata:   Metadata{Name: "gym-gateway"},
		Spec: GatewaySpec{
			Listeners: []Listener{
				{Name: "http", Port: DefaultListenerPort, Bind: "0.0.0.0"},
			},
			Routes:   defaultRoutes(),
			Services: defaultServices(),
			Backend: BackendConfig{
				Timeout:             Duration(DefaultBackendTimeout),
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     Duration(90 * time.Second),
			},
			Authentication: AuthenticationConfig{
				JWT: JWTConfig{
					Enabled:         true,
					Issuer:          DefaultIssuer,
					JWKSURL:         DefaultIssuer + "/protocol/openid-connect/certs",
					RefreshInterval: Duration(DefaultJWKSRefresh),
					ClockSkew:       Duration(DefaultClockSkew),
					RoleClaim:       DefaultRoleClaim,
					Algorithms:      []string{"RS256"},
				},
			},
			Authorization: AuthorizationConfig{Rules: defaultRules()},
			CircuitBreakers: []CircuitBreakerConfig{
				{
					Name:             "pagos",
					Engine:           EngineNative,
					FailureThreshold: DefaultFailureThreshold,
					OpenDuration:     Duration(DefaultOpenDuration),
				},
			},
			Aggregation: AggregationConfig{
				Miembro: SourceConfig{Service: ServiceMiembros, Path: "/miembros/{id}"},
				Clases:  SourceConfig{Service: ServiceClases, Path: "/clases/miembro/{id}"},
				Pagos:   SourceConfig{Service: ServicePagos, Path: "/pagos/miembro/{id}"},
				Timeout: Duration(DefaultAggregationTimeout),
			},
			Observability: ObservabilityConfig{
				Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
				Metrics: MetricsConfig{Enabled: true, Path: DefaultMetricsPath, Port: DefaultMetricsPort},
				Tracing: TracingConfig{ServiceName: "gym-gateway", SamplingRate: 1},
			},
			ShutdownTimeout: Duration(DefaultShutdownTimeout),
		},
	}
}

func serviceRoute(name, prefix string) Route {
	return Route{
		Name:    name,
		Match:   RouteMatch{Path: prefix + "/**"},
		Service: name,
		Rewrite: &RewriteConfig{
			Regex:       prefix + "/(?<segment>.*)",
			Replacement: "/${segment}",
		},
		Headers: &HeaderManipulation{Set: map[string]string{sourceHeader: sourceHeaderValue}},
	}
}

func fallbackRoute(id, method string) Route {
	return Route{
		Name:     id,
		Match:    RouteMatch{Exact: "/" + id, Methods: []string{method}},
		Kind:     RouteKindFallback,
		Fallback: id,
	}
}

func defaultRoutes() []Route {
	procesar := serviceRoute("pagos-procesar", "/api/pagos")
	procesar.Match = RouteMatch{Path: "/api/pagos/procesar/**", Methods: []string{"POST"}}
	procesar.Service = ServicePagos
	procesar.Timeout = Duration(DefaultPagosTimeout)
	procesar.Resilience = &ResilienceConfig{CircuitBreaker: "pagos", Fallback: FallbackPagos}

	return []Route{
		procesar,
		serviceRoute(ServiceMiembros, "/api/miembros"),
		serviceRoute(ServiceClases, "/api/clases"),
		serviceRoute(ServiceEntrenadores, "/api/entrenadores"),
		serviceRoute(ServiceEquipos, "/api/equipos"),
		serviceRoute(ServicePagos, "/api/pagos"),
		{
			Name:  "resumen-miembro",
			Match: RouteMatch{Path: "/api/resumen/**", Methods: []string{"GET"}},
			Kind:  RouteKindAggregate,
		},
		fallbackRoute(FallbackDefault, "GET"),
		fallbackRoute(FallbackMiembros, "GET"),
		fallbackRoute(FallbackClases, "GET"),
		fallbackRoute(FallbackPagos, "POST"),
	}
}

func defaultServices() []Service {
	names := []string{ServiceMiembros, ServiceClases, ServiceEntrenadores, ServiceEquipos, ServicePagos}
	services := make([]Service, 0, len(names))
	for _, name := range names {
		services = append(services, Service{Name: name, Instances: []string{"http://" + name + ":8080"}})
	}
	return services
}

func defaultRules() []AuthorizationRule {
	staff := []string{"ADMIN", "STAFF"}
	members := []string{"ADMIN", "STAFF", "MIEMBRO"}
	return []AuthorizationRule{
		{Path: "/actuator/**", Access: AccessPublic},
		{Path: "/v3/api-docs/**", Access: AccessPublic},
		{Path: "/swagger-ui/**", Access: AccessPublic},
		{Path: "/swagger-ui.html", Access: AccessPublic},
		{Path: "/api/miembros/**", Access: AccessPublic},
		{Path: "/api/clases/**", Access: AccessPublic},
		{Path: "/api/entrenadores/**", Access: AccessRoles, Roles: staff},
		{Path: "/api/equipos/**", Access: AccessRoles, Roles: staff},
		{Path: "/api/pagos/**", Access: AccessRoles, Roles: members},
		{Path: "/api/resumen/**", Access: AccessRoles, Roles: members},
		{Path: "/fallback", Access: AccessPublic},
		{Path: "/miembros-fallback", Access: AccessPublic},
		{Path: "/clases-fallback", Access: AccessPublic},
		{Path: "/pagos-fallback", Access: AccessPublic},
	}
}
