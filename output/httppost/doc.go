// Package httppost implements the PostRequestSender stage: every record in
// the batch is posted to one HTTP endpoint as a JSON object, in sorted id
// order.
//
// # Outcomes
//
// Delivery splits three ways, and the split decides what the staging layer
// does with each record afterwards:
//
//   - response status equals expected_retval: the record is stamped out and
//     its staged copy gets cleaned up
//   - any other definitive response (4xx and unexpected 2xx/3xx): the
//     record is stamped failed and later lands in the junk directory
//   - transport failure or 5xx after all retries: the record is omitted
//     from the result and stays staged for the next pass
//
// 5xx responses are treated like transport failures because the endpoint
// may recover; retrying a 4xx would resend a request the endpoint already
// rejected.
//
// # Configuration
//
//	{
//	    "host_url": "https://ingest.example.com/v1/measurements",
//	    "expected_retval": 201,
//	    "basic_username": "ops",
//	    "basic_password": "secret",
//	    "select_send_as": {"value": "val", "timestamp": "ts"},
//	    "timeout": 10,
//	    "retry_count": 3,
//	    "rate_limit": 20
//	}
//
// select_send_as renames fields in the posted object only; the record kept
// by the pipeline is untouched. verify_certificate: false disables TLS
// verification, ca_file adds one trusted CA on top of the system pool.
package httppost
