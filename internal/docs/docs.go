// Package docs registers the OpenAPI document served under /swagger.
// Regenerate with `swag init -g cmd/lensd/docs.go -o internal/docs`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "lensd maintainers"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/": {
            "get": {
                "produces": ["application/json"],
                "tags": ["meta"],
                "summary": "Greeting",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.MessageResponse"}}
                }
            }
        },
        "/api/lens": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["lens"],
                "summary": "Logit lens",
                "description": "Decodes every layer's hidden state at the selected token positions of each conversation. Conversations are grouped by model; each model is traced once.",
                "parameters": [
                    {"description": "Conversations to analyse", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.LensRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.LensResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/api/tokenize": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["tokenize"],
                "summary": "Tokenize text",
                "description": "text is either a string or a list of chat messages; messages are rendered through the model's chat template first.",
                "parameters": [
                    {"description": "Text and model", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.TokenizeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.TokenizeResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/api/models": {
            "get": {
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "List configured models",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelsResponse"}}
                }
            }
        },
        "/healthz": {
            "get": {
                "produces": ["text/plain"],
                "tags": ["meta"],
                "summary": "Liveness",
                "responses": {"200": {"description": "ok"}}
            }
        },
        "/readyz": {
            "get": {
                "produces": ["text/plain"],
                "tags": ["meta"],
                "summary": "Readiness",
                "responses": {"200": {"description": "ready"}, "503": {"description": "not ready"}}
            }
        }
    },
    "definitions": {
        "types.Message": {
            "type": "object",
            "properties": {
                "role": {"type": "string", "enum": ["user", "assistant"], "example": "user"},
                "content": {"type": "string", "example": "What is the capital of France?"}
            }
        },
        "types.Conversation": {
            "type": "object",
            "required": ["model"],
            "properties": {
                "id": {"type": "string", "example": "c-1"},
                "type": {"type": "string", "enum": ["chat", "base"], "example": "base"},
                "model": {"type": "string", "example": "EleutherAI/gpt-j-6b"},
                "title": {"type": "string"},
                "systemMessage": {"type": "string"},
                "messages": {"type": "array", "items": {"$ref": "#/definitions/types.Message"}},
                "prompt": {"type": "string", "example": "The Eiffel Tower is in the city of"},
                "isExpanded": {"type": "boolean"},
                "selectedTokenIndices": {"type": "array", "items": {"type": "integer"}, "example": [0, 3, 7]}
            }
        },
        "types.LensRequest": {
            "type": "object",
            "required": ["conversations"],
            "properties": {
                "conversations": {"type": "array", "items": {"$ref": "#/definitions/types.Conversation"}}
            }
        },
        "types.LayerResult": {
            "type": "object",
            "properties": {
                "conversation_id": {"type": "string", "example": "c-1"},
                "layer_idx": {"type": "integer", "example": 0},
                "pred_probs": {"type": "array", "items": {"type": "number"}},
                "preds": {"type": "array", "items": {"type": "string"}}
            }
        },
        "types.ModelResults": {
            "type": "object",
            "properties": {
                "model_name": {"type": "string", "example": "EleutherAI/gpt-j-6b"},
                "layer_results": {"type": "array", "items": {"$ref": "#/definitions/types.LayerResult"}}
            }
        },
        "types.LensResponse": {
            "type": "object",
            "properties": {
                "model_results": {"type": "array", "items": {"$ref": "#/definitions/types.ModelResults"}}
            }
        },
        "types.TokenizeRequest": {
            "type": "object",
            "required": ["text", "model"],
            "properties": {
                "text": {"type": "string", "description": "A string, or an array of types.Message"},
                "model": {"type": "string", "example": "EleutherAI/gpt-j-6b"}
            }
        },
        "types.TokenizeResponse": {
            "type": "object",
            "properties": {
                "tokens": {"type": "array", "items": {"type": "string"}}
            }
        },
        "types.ModelInfo": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "EleutherAI/gpt-j-6b"},
                "loaded": {"type": "boolean", "example": true},
                "rename": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "types.ModelsResponse": {
            "type": "object",
            "properties": {
                "models": {"type": "array", "items": {"$ref": "#/definitions/types.ModelInfo"}}
            }
        },
        "types.MessageResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "Hello World"}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "lensd API",
	Description:      "Logit lens and tokenization over traced language models.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
