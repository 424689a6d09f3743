// Package docs содержит описание API для swagger (формат swag init).
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{.Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/access": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Возвращает, есть ли у пользователя активная подписка на любой платформе.",
                "produces": ["application/json"],
                "tags": ["Access"],
                "summary": "Проверить доступ",
                "parameters": [
                    {"type": "string", "description": "ios, android или web", "name": "X-Client-Platform", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "Решение о доступе", "schema": {"$ref": "#/definitions/response.Response"}},
                    "401": {"description": "Нет авторизации", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/access/refresh": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Восстанавливает покупки по чеку (native) или пересинхронизирует веб-подписку, затем связывает платформы.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Access"],
                "summary": "Обновить доступ",
                "parameters": [
                    {"type": "string", "description": "ios, android или web", "name": "X-Client-Platform", "in": "header"},
                    {"description": "Чек магазина", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/refresh.Request"}}
                ],
                "responses": {
                    "200": {"description": "Решение о доступе после обновления", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Некорректный JSON", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "422": {"description": "Ошибка валидации", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/assistant/{persona}/chat": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Выполняет один цикл диалога с персоной (estimating, projects, crm, finance).",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Assistant"],
                "summary": "Сообщение ассистенту",
                "parameters": [
                    {"type": "string", "description": "Персона ассистента", "name": "persona", "in": "path", "required": true},
                    {"description": "Транскрипт диалога", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/chat.Request"}}
                ],
                "responses": {
                    "200": {"description": "Ответ ассистента", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Некорректный JSON", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "404": {"description": "Неизвестная персона", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "422": {"description": "Ошибка валидации", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "502": {"description": "Языковая модель недоступна", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/assistant/drafts/{id}/approve": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Ставит подтверждённое письмо в очередь отправки. Черновик подтверждается один раз.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Assistant"],
                "summary": "Подтвердить черновик",
                "parameters": [
                    {"type": "string", "description": "ID черновика", "name": "id", "in": "path", "required": true},
                    {"description": "Правки темы и текста", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/approve.Request"}}
                ],
                "responses": {
                    "200": {"description": "Письмо поставлено в очередь", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Некорректный JSON", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "404": {"description": "Черновик не найден или истёк", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/assistant/drafts/{id}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Assistant"],
                "summary": "Удалить черновик",
                "parameters": [
                    {"type": "string", "description": "ID черновика", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Черновик удалён", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/billing/stripe/webhook": {
            "post": {
                "description": "Принимает события Stripe с проверкой подписи и ставит задание сверки в очередь.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Billing"],
                "summary": "Вебхук Stripe",
                "parameters": [
                    {"type": "string", "description": "Подпись события", "name": "Stripe-Signature", "in": "header", "required": true}
                ],
                "responses": {
                    "200": {"description": "Событие принято", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Неверная подпись", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/billing/revenuecat/webhook": {
            "post": {
                "description": "Принимает события RevenueCat с общим секретом в Authorization и ставит задание сверки в очередь.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Billing"],
                "summary": "Вебхук RevenueCat",
                "responses": {
                    "200": {"description": "Событие принято", "schema": {"$ref": "#/definitions/response.Response"}},
                    "401": {"description": "Неверный секрет", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "approve.Request": {
            "type": "object",
            "properties": {
                "body": {"type": "string"},
                "subject": {"type": "string"}
            }
        },
        "chat.Request": {
            "type": "object",
            "required": ["messages"],
            "properties": {
                "messages": {"type": "array", "items": {"$ref": "#/definitions/models.Turn"}}
            }
        },
        "models.Turn": {
            "type": "object",
            "required": ["content", "role"],
            "properties": {
                "content": {"type": "string"},
                "role": {"type": "string", "enum": ["user", "assistant"]}
            }
        },
        "refresh.Request": {
            "type": "object",
            "properties": {
                "receipt": {"type": "string"}
            }
        },
        "response.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "invalid request body"},
                "status": {"type": "string", "example": "Error"}
            }
        },
        "response.Response": {
            "type": "object",
            "properties": {
                "data": {},
                "error": {"type": "string"},
                "status": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Contractor Assistant API",
	Description:      "Доступ к платным функциям и ассистенты подрядчика",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
