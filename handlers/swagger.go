package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints.
// - GET /swagger/index.html -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json   -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Header("Content-Type", "application/json")
		c.String(http.StatusOK, swaggerJSON)
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>papyrus — Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "papyrus", "version": "v0.1.0" },
  "paths": {
    "/auth/register": {
      "post": {
        "summary": "Create an account with a hashed password",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"name":{"type":"string"},"role":{"type":"string"},"password":{"type":"string"}}}}}},
        "responses": { "201": { "description": "account" }, "400": { "description": "invalid request" } }
      }
    },
    "/auth/exchange": {
      "post": {
        "summary": "Exchange an identity-provider token for service tokens, provisioning the account from its claims",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"token":{"type":"string"}}}}}},
        "responses": { "200": { "description": "tokens" }, "401": { "description": "invalid token" } }
      }
    },
    "/auth/login": {
      "post": {
        "summary": "Login with email/password, returns access and refresh tokens",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"}}}}}},
        "responses": { "200": { "description": "tokens" }, "401": { "description": "invalid credentials" } }
      }
    },
    "/auth/refresh": {
      "post": {
        "summary": "Exchange a refresh token for a new access token",
        "responses": { "200": { "description": "access token" }, "401": { "description": "invalid refresh token" } }
      }
    },
    "/auth/logout": {
      "post": { "summary": "Revoke the current access token and refresh session", "responses": { "200": { "description": "logged out" } } }
    },
    "/api/v1/docs/{collection}/{id}": {
      "get": {
        "summary": "Fetch a document, optionally populating reference paths",
        "parameters": [
          {"name":"collection","in":"path","required":true,"schema":{"type":"string"}},
          {"name":"id","in":"path","required":true,"schema":{"type":"string"}},
          {"name":"populate","in":"query","schema":{"type":"string"},"description":"comma-separated paths, e.g. author(name),comments.author"},
          {"name":"strict","in":"query","schema":{"type":"boolean"},"description":"all-or-nothing resolution"}
        ],
        "responses": { "200": { "description": "document" }, "403": { "description": "denied" }, "404": { "description": "not found" } }
      },
      "patch": { "summary": "Partially update a document (owner rules apply)", "responses": { "204": { "description": "updated" } } },
      "delete": { "summary": "Delete a document (owner rules apply)", "responses": { "204": { "description": "deleted" } } }
    },
    "/api/v1/docs/{collection}": {
      "post": { "summary": "Create a document owned by the caller", "responses": { "201": { "description": "created" } } }
    }
  }
}`
