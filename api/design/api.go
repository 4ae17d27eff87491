package design

import (
	. "goa.design/goa/v3/dsl"
)

var _ = API("barakahit", func() {
	Title("Barakah IT Contact API")
	Description("Contact form intake for the Barakah IT Institute website")
	Version("1.0.0")
	Server("api", func() {
		Host("localhost", func() {
			URI("http://localhost:3001")
		})
	})
})

var ValidationFailure = Type("ValidationFailure", func() {
	Description("Submission rejected by intake validation")
	Attribute("success", Boolean, "Always false", func() {
		Example(false)
	})
	Attribute("message", String, "Human readable reason", func() {
		Example("Invalid email format")
	})
	Attribute("field", String, "Offending request field", func() {
		Example("email")
	})
	Required("success", "message")
})

var DebugInfo = Type("DebugInfo", func() {
	Description("Error detail, only present when APP_ENV=development")
	Attribute("name", String, "Error class", func() {
		Example("PERSISTENCE_ERROR")
	})
	Attribute("message", String, "Underlying error message")
})

var SubmitFailure = Type("SubmitFailure", func() {
	Description("Submission could not be stored")
	Attribute("success", Boolean, "Always false", func() {
		Example(false)
	})
	Attribute("message", String, "Generic failure message", func() {
		Example("Failed to submit inquiry. Please try again later.")
	})
	Attribute("debug", DebugInfo)
	Required("success", "message")
})

// Health check
var _ = Service("health", func() {
	Description("Liveness and database state")
	Method("check", func() {
		Result(HealthResult)
		HTTP(func() {
			GET("/api/health")
			GET("/health")
			Response(StatusOK)
		})
	})
})

var HealthResult = Type("HealthResult", func() {
	Attribute("status", String, "Always ok while the process answers", func() {
		Example("ok")
	})
	Attribute("service", String, "Service name", func() {
		Example("Barakah IT Contact API")
	})
	Attribute("timestamp", String, "Server time", func() {
		Format(FormatDateTime)
	})
	Attribute("database", String, "Shared connection state", func() {
		Enum("up", "down", "not_connected")
	})
	Required("status", "service", "timestamp", "database")
})

// Contact service
var _ = Service("contact", func() {
	Description("Contact form intake")

	Method("submit", func() {
		Description("Validate, store and announce a contact inquiry")
		Payload(ContactForm)
		Result(SubmitResult)
		Error("bad_request", ValidationFailure)
		Error("internal_error", SubmitFailure)
		HTTP(func() {
			POST("/api/contact")
			Response(StatusCreated)
			Response("bad_request", StatusBadRequest)
			Response("internal_error", StatusInternalServerError)
		})
	})
})

var ContactForm = Type("ContactForm", func() {
	Description("Raw contact form; name, email and message must be non-blank")
	Attribute("name", String, "Submitter name", func() {
		Example("Jane Doe")
	})
	Attribute("email", String, "Submitter email", func() {
		Example("jane@example.com")
	})
	Attribute("phone", String, "Optional phone number", func() {
		Example("+44 20 7946 0958")
	})
	Attribute("message", String, "Inquiry text", func() {
		Example("I'd like to know more about your courses.")
	})
})

var SubmitResult = Type("SubmitResult", func() {
	Attribute("success", Boolean, "Always true", func() {
		Example(true)
	})
	Attribute("message", String, "Confirmation", func() {
		Example("Inquiry submitted successfully")
	})
	Attribute("inquiryId", String, "Identifier of the stored inquiry", func() {
		Format(FormatUUID)
	})
	Required("success", "message", "inquiryId")
})
