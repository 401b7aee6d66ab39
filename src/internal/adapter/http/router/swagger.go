package router

import (
	"fmt"
	"net/http"
)

func registerSwaggerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/", http.StatusMovedPermanently)
	})

	mux.HandleFunc("/swagger/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, swaggerHTML, "/swagger/openapi.json")
	})

	mux.HandleFunc("/swagger/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(openAPI))
	})
}

const swaggerHTML = `<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>PIN Ledger API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.onload = function() {
      window.ui = SwaggerUIBundle({
        url: "%s",
        dom_id: "#swagger-ui"
      });
    };
  </script>
</body>
</html>`

const openAPI = `{
  "openapi": "3.0.3",
  "info": {
    "title": "PIN Ledger API",
    "version": "1.0.0"
  },
  "paths": {
    "/signup": {
      "post": {
        "summary": "Create an account with a zero balance",
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["username", "email", "password", "pin"],
                "properties": {
                  "username": {"type": "string"},
                  "email": {"type": "string"},
                  "password": {"type": "string", "minLength": 8},
                  "pin": {"type": "string", "pattern": "^[0-9]{4,6}$"}
                }
              }
            }
          }
        },
        "responses": {
          "201": {"description": "Created"},
          "400": {"description": "Validation error"},
          "409": {"description": "Username or email taken"},
          "500": {"description": "Server error"}
        }
      }
    },
    "/login": {
      "post": {
        "summary": "Verify password and PIN",
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["username", "password", "pin"],
                "properties": {
                  "username": {"type": "string"},
                  "password": {"type": "string"},
                  "pin": {"type": "string"}
                }
              }
            }
          }
        },
        "responses": {
          "200": {"description": "Authenticated"},
          "401": {"description": "Invalid credentials or PIN"},
          "413": {"description": "Request body too large"}
        }
      }
    },
    "/deposit": {
      "post": {
        "summary": "Deposit into the caller's account",
        "security": [{"BasicAuth": []}],
        "requestBody": {"$ref": "#/components/requestBodies/Amount"},
        "responses": {
          "200": {"description": "New balance"},
          "400": {"description": "Invalid amount"},
          "401": {"description": "Invalid credentials or PIN"},
          "413": {"description": "Request body too large"}
        }
      }
    },
    "/withdraw": {
      "post": {
        "summary": "Withdraw from the caller's account",
        "security": [{"BasicAuth": []}],
        "requestBody": {"$ref": "#/components/requestBodies/Amount"},
        "responses": {
          "200": {"description": "New balance"},
          "400": {"description": "Invalid amount"},
          "401": {"description": "Invalid credentials or PIN"},
          "413": {"description": "Request body too large"},
          "422": {"description": "Insufficient balance"}
        }
      }
    },
    "/transfer": {
      "post": {
        "summary": "Transfer to another account",
        "security": [{"BasicAuth": []}],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["recipient", "amount", "pin"],
                "properties": {
                  "recipient": {"type": "string"},
                  "amount": {"type": "string"},
                  "pin": {"type": "string"},
                  "note": {"type": "string", "maxLength": 140}
                }
              }
            }
          }
        },
        "responses": {
          "200": {"description": "Sender's new balance"},
          "400": {"description": "Invalid amount"},
          "401": {"description": "Invalid credentials or PIN"},
          "404": {"description": "Recipient not found"},
          "409": {"description": "Self transfer"},
          "413": {"description": "Request body too large"},
          "422": {"description": "Insufficient balance"}
        }
      }
    },
    "/balance": {
      "get": {
        "summary": "Current balance",
        "security": [{"BasicAuth": []}],
        "responses": {
          "200": {"description": "Balance"},
          "401": {"description": "Unauthorized"}
        }
      }
    },
    "/transactions": {
      "get": {
        "summary": "Transaction history, most recent first",
        "security": [{"BasicAuth": []}],
        "responses": {
          "200": {"description": "Transactions"},
          "401": {"description": "Unauthorized"}
        }
      }
    },
    "/recipients/{username}": {
      "get": {
        "summary": "Check whether a recipient exists",
        "security": [{"BasicAuth": []}],
        "parameters": [
          {"name": "username", "in": "path", "required": true, "schema": {"type": "string"}}
        ],
        "responses": {
          "200": {"description": "Lookup result"},
          "401": {"description": "Unauthorized"}
        }
      }
    },
    "/health": {
      "get": {
        "summary": "Liveness check",
        "responses": {
          "200": {"description": "Up"}
        }
      }
    }
  },
  "components": {
    "securitySchemes": {
      "BasicAuth": {"type": "http", "scheme": "basic"}
    },
    "requestBodies": {
      "Amount": {
        "required": true,
        "content": {
          "application/json": {
            "schema": {
              "type": "object",
              "required": ["amount", "pin"],
              "properties": {
                "amount": {"type": "string"},
                "pin": {"type": "string"},
                "note": {"type": "string", "maxLength": 140}
              }
            }
          }
        }
      }
    }
  }
}`
