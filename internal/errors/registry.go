package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Graph Errors (G001-G019)
	// ============================================

	"G001": {
		Category:   CategoryRuntime,
		Message:    "Node cannot be found",
		Detail:     "No provider or input is registered for this node ID. IDs are compared by identity, so a second ID with the same name is a different node.",
		Suggestion: "register the node with RegisterProvider or CreateProvider before reading it",
	},
	"G002": {
		Category:   CategoryConfig,
		Message:    "Node is already registered",
		Detail:     "The node ID is already bound to a node of another kind, or the input was already seeded for this context.",
		Suggestion: "use the setter returned by CreateProvider to change an input's value",
	},
	"G003": {
		Category:   CategoryConfig,
		Message:    "Node re-registered with a different shape",
		Detail:     "A derived node keeps the provider and parameter list it was first registered with for the lifetime of the process.",
		Suggestion: "register each node once, from a single registration table",
	},
	"G004": {
		Category:   CategoryConfig,
		Message:    "Node is not an instance of InputNode",
		Detail:     "Only input nodes created with CreateProvider accept writes. Derived nodes are recomputed from their parameters.",
		Suggestion: "write to one of the node's inputs instead",
	},
	"G005": {
		Category:   CategoryRuntime,
		Message:    "Value has incorrect type",
		Detail:     "The value produced for this node does not satisfy the node's type descriptor. The graph state was left untouched.",
	},
	"G006": {
		Category:   CategoryConfig,
		Message:    "Dependency cycle detected",
		Detail:     "The node transitively depends on itself. Cyclic graphs are not supported.",
		Suggestion: "break the cycle by introducing an input node",
	},
	"G007": {
		Category:   CategoryRuntime,
		Message:    "Instance node read without a context",
		Detail:     "Instance-scoped nodes hold one value per owning context and cannot be read in the global context.",
		Suggestion: "pass the owning context to Get",
	},
	"G008": {
		Category: CategoryRuntime,
		Message:  "Provider failed",
		Detail:   "The provider function returned an error. The memoized value for the context was left untouched.",
	},

	// ============================================
	// Manifest Errors (G020-G039)
	// ============================================

	"G020": {
		Category: CategoryManifest,
		Message:  "Invalid manifest",
		Detail:   "The HCL manifest could not be parsed or decoded.",
	},
	"G021": {
		Category:   CategoryManifest,
		Message:    "Unknown provider",
		Detail:     "The node names a provider that is not in the provider table passed to the loader.",
		Suggestion: "add the provider to the manifest.Providers map",
	},
	"G022": {
		Category:   CategoryManifest,
		Message:    "Unknown parameter",
		Detail:     "The node lists a parameter that is neither an input nor a node in the manifest.",
		Suggestion: "declare the parameter with an input or node block",
	},
	"G023": {
		Category: CategoryManifest,
		Message:  "Invalid type expression",
		Detail:   "Type expressions use the HCL type syntax, e.g. number, string, list(number), map(string), any.",
	},
	"G024": {
		Category: CategoryManifest,
		Message:  "Duplicate declaration",
		Detail:   "Every input and node name must be unique within a manifest.",
	},

	// ============================================
	// Config / CLI Errors (G040-G059)
	// ============================================

	"G040": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "vgraph.json could not be read or contains invalid values.",
	},
	"G041": {
		Category: CategoryCLI,
		Message:  "Invalid assignment",
		Detail:   "Assignments use the form name=value where value is an HCL literal, e.g. price=12 or tags=[\"a\"].",
	},
}
