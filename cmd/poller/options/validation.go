package options

import (
	"fmt"

	"swrgateway/pkg/transport"
)

func Validate(o *Options) []error {
	var errs []error
	if err := o.BaseOptions.ValidateAndApply(); err != nil {
		errs = append(errs, err)
	}
	if len(o.Endpoint) == 0 {
		errs = append(errs, fmt.Errorf("a device endpoint is required: host:port or a serial device path"))
	}
	if o.Interval == 0 {
		errs = append(errs, fmt.Errorf("poll interval must be positive"))
	}
	if o.Wait <= 0 {
		errs = append(errs, fmt.Errorf("graceful-timeout must be positive"))
	}
	if len(o.Endpoint) > 0 && !transport.IsNetworkEndpoint(o.Endpoint) && o.Endpoint[0] != '/' {
		errs = append(errs, fmt.Errorf("endpoint %q is neither host:port nor an absolute device path", o.Endpoint))
	}
	return errs
}
