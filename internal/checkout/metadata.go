package checkout

import (
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Keys stored on the gateway session and read back from the completion event.
const (
	MetadataCartID             = "cartId"
	MetadataShippingDetails    = "shippingDetails"
	MetadataShippingCity       = "shippingCity"
	MetadataShippingPhone      = "shippingPhone"
	MetadataShippingPostalCode = "shippingPostalCode"
)

func shippingMetadata(cartID string, addr types.Address) map[string]string {
	return map[string]string{
		MetadataCartID:             cartID,
		MetadataShippingDetails:    addr.Details,
		MetadataShippingCity:       addr.City,
		MetadataShippingPhone:      addr.Phone,
		MetadataShippingPostalCode: addr.PostalCode,
	}
}

// ShippingFromMetadata rebuilds the shipping snapshot carried on a session.
func ShippingFromMetadata(meta map[string]string) types.Address {
	return types.Address{
		Details:    strings.TrimSpace(meta[MetadataShippingDetails]),
		City:       strings.TrimSpace(meta[MetadataShippingCity]),
		Phone:      strings.TrimSpace(meta[MetadataShippingPhone]),
		PostalCode: strings.TrimSpace(meta[MetadataShippingPostalCode]),
	}
}
