// Package protocol defines the management model used to talk to WildFly and
// JBoss EAP servers: model values (Node), resource addresses, operation
// builders, and the envelope exchanged over stream transports. It can be used
// externally to build additional tooling or integrations.
package protocol

// Well-known operation and result keys.
const (
	OpKey               = "operation"
	AddressKey          = "address"
	StepsKey            = "steps"
	OperationHeadersKey = "operation-headers"

	OutcomeKey            = "outcome"
	ResultKey             = "result"
	FailureDescriptionKey = "failure-description"
	ResponseHeadersKey    = "response-headers"
	ProcessStateKey       = "process-state"
	ServerGroupsKey       = "server-groups"
	ResponseKey           = "response"
	RolledBackKey         = "rolled-back"

	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"

	ProcessStateReloadRequired  = "reload-required"
	ProcessStateRestartRequired = "restart-required"
)

// Address keys with special meaning for domain rewriting.
const (
	SubsystemKey   = "subsystem"
	CoreServiceKey = "core-service"
	ProfileKey     = "profile"
	HostKey        = "host"
	ServerKey      = "server"
	ServerGroupKey = "server-group"
)

// Common operation names.
const (
	OpComposite             = "composite"
	OpAdd                   = "add"
	OpRemove                = "remove"
	OpReadResource          = "read-resource"
	OpReadAttribute         = "read-attribute"
	OpWriteAttribute        = "write-attribute"
	OpUndefineAttribute     = "undefine-attribute"
	OpReadChildrenNames     = "read-children-names"
	OpReadChildrenTypes     = "read-children-types"
	OpReadResourceDesc      = "read-resource-description"
	OpReload                = "reload"
	OpShutdown              = "shutdown"
	OpReloadServers         = "reload-servers"
	OpRestartServers        = "restart-servers"
	OpWhoAmI                = "whoami"
	ManagementMajorVersion  = "management-major-version"
	ManagementMinorVersion  = "management-minor-version"
	ManagementMicroVersion  = "management-micro-version"
	ServerStateAttribute    = "server-state"
	ProductVersionAttribute = "product-version"
)

// Request types carried in the stream envelope.
const (
	CmdExecute = "management.execute"
	CmdPing    = "system.ping"
)

// Response statuses of the stream envelope.
const (
	StatusOK    = "ok"
	StatusError = "error"

	// ErrorNotAuthenticated is the Response.Error of a rejected Auth block.
	ErrorNotAuthenticated = "not authenticated"
)

// Request is the envelope a stream client sends to a management endpoint.
type Request struct {
	Type      string `json:"type"`                // e.g. "management.execute"
	Auth      *Auth  `json:"auth,omitempty"`      // Optional auth block
	Operation *Node  `json:"operation,omitempty"` // Operation to execute
}

// Response is the envelope a management endpoint sends back. Status "error"
// means the endpoint could not process the request at all (bad credentials,
// malformed envelope); server-side operation failures are reported with
// status "ok" and outcome "failed" inside Result.
type Response struct {
	Status string `json:"status"`           // "ok" or "error"
	Result *Node  `json:"result,omitempty"` // Management response
	Error  string `json:"error,omitempty"`  // Optional error message
}

// Auth holds authentication information for a client.
type Auth struct {
	User     string `json:"user"`
	Password string `json:"password"`
}
