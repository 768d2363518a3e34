package kurir

import "strconv"

// HTTPStatusCode is an HTTP response status with a symbolic name.
type HTTPStatusCode int

const (
	StatusContinue                      HTTPStatusCode = 100
	StatusSwitchingProtocols            HTTPStatusCode = 101
	StatusProcessing                    HTTPStatusCode = 102
	StatusEarlyHints                    HTTPStatusCode = 103
	StatusOk                            HTTPStatusCode = 200
	StatusCreated                       HTTPStatusCode = 201
	StatusAccepted                      HTTPStatusCode = 202
	StatusNonAuthoritativeInformation   HTTPStatusCode = 203
	StatusNoContent                     HTTPStatusCode = 204
	StatusResetContent                  HTTPStatusCode = 205
	StatusPartialContent                HTTPStatusCode = 206
	StatusMultiStatus                   HTTPStatusCode = 207
	StatusAlreadyReported               HTTPStatusCode = 208
	StatusImUsed                        HTTPStatusCode = 226
	StatusMultipleChoices               HTTPStatusCode = 300
	StatusMovedPermanently              HTTPStatusCode = 301
	StatusFound                         HTTPStatusCode = 302
	StatusSeeOther                      HTTPStatusCode = 303
	StatusNotModified                   HTTPStatusCode = 304
	StatusUseProxy                      HTTPStatusCode = 305
	StatusUnused                        HTTPStatusCode = 306
	StatusTemporaryRedirect             HTTPStatusCode = 307
	StatusPermanentRedirect             HTTPStatusCode = 308
	StatusBadRequest                    HTTPStatusCode = 400
	StatusUnauthorized                  HTTPStatusCode = 401
	StatusPaymentRequired               HTTPStatusCode = 402
	StatusForbidden                     HTTPStatusCode = 403
	StatusNotFound                      HTTPStatusCode = 404
	StatusMethodNotAllowed              HTTPStatusCode = 405
	StatusNotAcceptable                 HTTPStatusCode = 406
	StatusProxyAuthenticationRequired   HTTPStatusCode = 407
	StatusRequestTimeout                HTTPStatusCode = 408
	StatusConflict                      HTTPStatusCode = 409
	StatusGone                          HTTPStatusCode = 410
	StatusLengthRequired                HTTPStatusCode = 411
	StatusPreconditionFailed            HTTPStatusCode = 412
	StatusPayloadTooLarge               HTTPStatusCode = 413
	StatusURITooLong                    HTTPStatusCode = 414
	StatusUnsupportedMediaType          HTTPStatusCode = 415
	StatusRangeNotSatisfiable           HTTPStatusCode = 416
	StatusExpectationFailed             HTTPStatusCode = 417
	StatusImATeapot                     HTTPStatusCode = 418
	StatusMisdirectedRequest            HTTPStatusCode = 421
	StatusUnprocessableEntity           HTTPStatusCode = 422
	StatusLocked                        HTTPStatusCode = 423
	StatusFailedDependency              HTTPStatusCode = 424
	StatusTooEarly                      HTTPStatusCode = 425
	StatusUpgradeRequired               HTTPStatusCode = 426
	StatusPreconditionRequired          HTTPStatusCode = 428
	StatusTooManyRequests               HTTPStatusCode = 429
	StatusRequestHeaderFieldsTooLarge   HTTPStatusCode = 431
	StatusUnavailableForLegalReasons    HTTPStatusCode = 451
	StatusInternalServerError           HTTPStatusCode = 500
	StatusNotImplemented                HTTPStatusCode = 501
	StatusBadGateway                    HTTPStatusCode = 502
	StatusServiceUnavailable            HTTPStatusCode = 503
	StatusGatewayTimeout                HTTPStatusCode = 504
	StatusHTTPVersionNotSupported       HTTPStatusCode = 505
	StatusVariantAlsoNegotiates         HTTPStatusCode = 506
	StatusInsufficientStorage           HTTPStatusCode = 507
	StatusLoopDetected                  HTTPStatusCode = 508
	StatusNotExtended                   HTTPStatusCode = 510
	StatusNetworkAuthenticationRequired HTTPStatusCode = 511
	StatusWebServerIsDown               HTTPStatusCode = 521
	StatusConnectionTimedOut            HTTPStatusCode = 522
	StatusOriginIsUnreachable           HTTPStatusCode = 523
	StatusTimeoutOccurred               HTTPStatusCode = 524
	StatusSslHandshakeFailed            HTTPStatusCode = 525
	StatusInvalidSslCertificate         HTTPStatusCode = 526
)

var statusNames = map[HTTPStatusCode]string{
	StatusContinue:                      "Continue",
	StatusSwitchingProtocols:            "SwitchingProtocols",
	StatusProcessing:                    "Processing",
	StatusEarlyHints:                    "EarlyHints",
	StatusOk:                            "Ok",
	StatusCreated:                       "Created",
	StatusAccepted:                      "Accepted",
	StatusNonAuthoritativeInformation:   "NonAuthoritativeInformation",
	StatusNoContent:                     "NoContent",
	StatusResetContent:                  "ResetContent",
	StatusPartialContent:                "PartialContent",
	StatusMultiStatus:                   "MultiStatus",
	StatusAlreadyReported:               "AlreadyReported",
	StatusImUsed:                        "ImUsed",
	StatusMultipleChoices:               "MultipleChoices",
	StatusMovedPermanently:              "MovedPermanently",
	StatusFound:                         "Found",
	StatusSeeOther:                      "SeeOther",
	StatusNotModified:                   "NotModified",
	StatusUseProxy:                      "UseProxy",
	StatusUnused:                        "Unused",
	StatusTemporaryRedirect:             "TemporaryRedirect",
	StatusPermanentRedirect:             "PermanentRedirect",
	StatusBadRequest:                    "BadRequest",
	StatusUnauthorized:                  "Unauthorized",
	StatusPaymentRequired:               "PaymentRequired",
	StatusForbidden:                     "Forbidden",
	StatusNotFound:                      "NotFound",
	StatusMethodNotAllowed:              "MethodNotAllowed",
	StatusNotAcceptable:                 "NotAcceptable",
	StatusProxyAuthenticationRequired:   "ProxyAuthenticationRequired",
	StatusRequestTimeout:                "RequestTimeout",
	StatusConflict:                      "Conflict",
	StatusGone:                          "Gone",
	StatusLengthRequired:                "LengthRequired",
	StatusPreconditionFailed:            "PreconditionFailed",
	StatusPayloadTooLarge:               "PayloadTooLarge",
	StatusURITooLong:                    "UriTooLong",
	StatusUnsupportedMediaType:          "UnsupportedMediaType",
	StatusRangeNotSatisfiable:           "RangeNotSatisfiable",
	StatusExpectationFailed:             "ExpectationFailed",
	StatusImATeapot:                     "ImATeapot",
	StatusMisdirectedRequest:            "MisdirectedRequest",
	StatusUnprocessableEntity:           "UnprocessableEntity",
	StatusLocked:                        "Locked",
	StatusFailedDependency:              "FailedDependency",
	StatusTooEarly:                      "TooEarly",
	StatusUpgradeRequired:               "UpgradeRequired",
	StatusPreconditionRequired:          "PreconditionRequired",
	StatusTooManyRequests:               "TooManyRequests",
	StatusRequestHeaderFieldsTooLarge:   "RequestHeaderFieldsTooLarge",
	StatusUnavailableForLegalReasons:    "UnavailableForLegalReasons",
	StatusInternalServerError:           "InternalServerError",
	StatusNotImplemented:                "NotImplemented",
	StatusBadGateway:                    "BadGateway",
	StatusServiceUnavailable:            "ServiceUnavailable",
	StatusGatewayTimeout:                "GatewayTimeout",
	StatusHTTPVersionNotSupported:       "HttpVersionNotSupported",
	StatusVariantAlsoNegotiates:         "VariantAlsoNegotiates",
	StatusInsufficientStorage:           "InsufficientStorage",
	StatusLoopDetected:                  "LoopDetected",
	StatusNotExtended:                   "NotExtended",
	StatusNetworkAuthenticationRequired: "NetworkAuthenticationRequired",
	StatusWebServerIsDown:               "WebServerIsDown",
	StatusConnectionTimedOut:            "ConnectionTimedOut",
	StatusOriginIsUnreachable:           "OriginIsUnreachable",
	StatusTimeoutOccurred:               "TimeoutOccurred",
	StatusSslHandshakeFailed:            "SslHandshakeFailed",
	StatusInvalidSslCertificate:         "InvalidSslCertificate",
}

// String returns the symbolic name, or the decimal code for unknown statuses.
func (s HTTPStatusCode) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return strconv.Itoa(int(s))
}

// StatusCodeByName looks up a status by its symbolic name.
func StatusCodeByName(name string) (HTTPStatusCode, bool) {
	for code, n := range statusNames {
		if n == name {
			return code, true
		}
	}
	return 0, false
}

func (s HTTPStatusCode) IsInformational() bool { return s >= 100 && s < 200 }
func (s HTTPStatusCode) IsSuccess() bool       { return s >= 200 && s < 300 }
func (s HTTPStatusCode) IsRedirect() bool      { return s >= 300 && s < 400 }
func (s HTTPStatusCode) IsClientError() bool   { return s >= 400 && s < 500 }
func (s HTTPStatusCode) IsServerError() bool   { return s >= 500 && s < 600 }
